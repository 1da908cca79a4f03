package relay

import "sync"

// Phase is the connection lifecycle of one transport.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseAuthenticating
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// State tracks the phase of every registered transport. Dispatch is
// gated on all of them being Ready, which prevents partial-network echo
// storms during startup.
type State struct {
	mu     sync.RWMutex
	phases map[string]Phase
}

func NewState(transportIDs ...string) *State {
	s := &State{phases: make(map[string]Phase, len(transportIDs))}
	for _, id := range transportIDs {
		s.phases[id] = PhaseDisconnected
	}
	return s
}

// Register adds a transport at PhaseDisconnected if not already known.
func (s *State) Register(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.phases[id]; !ok {
		s.phases[id] = PhaseDisconnected
	}
}

func (s *State) SetPhase(id string, p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases[id] = p
}

func (s *State) Phase(id string) Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phases[id]
}

// AllReady reports whether every registered transport is Ready. An
// empty state is never ready.
func (s *State) AllReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.phases) == 0 {
		return false
	}
	for _, p := range s.phases {
		if p != PhaseReady {
			return false
		}
	}
	return true
}
