// Package channels holds the transports: one connection per external
// chat network. Each transport normalizes its native events into
// bus.RelayEvent and publishes them; outbound delivery goes through the
// dispatcher's sink interfaces.
package channels

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tinyland-inc/bridgeclaw/pkg/bus"
	"github.com/tinyland-inc/bridgeclaw/pkg/relay"
)

type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
}

// BaseTransport carries the pieces every transport shares: the event
// bus, the readiness state, and a running flag.
type BaseTransport struct {
	name    string
	bus     *bus.EventBus
	state   *relay.State
	log     zerolog.Logger
	running atomic.Bool
}

func NewBaseTransport(name string, eb *bus.EventBus, state *relay.State, log zerolog.Logger) *BaseTransport {
	state.Register(name)
	return &BaseTransport{
		name:  name,
		bus:   eb,
		state: state,
		log:   log.With().Str("transport", name).Logger(),
	}
}

func (t *BaseTransport) Name() string {
	return t.name
}

func (t *BaseTransport) IsRunning() bool {
	return t.running.Load()
}

func (t *BaseTransport) SetRunning(running bool) {
	t.running.Store(running)
}

func (t *BaseTransport) SetPhase(p relay.Phase) {
	t.state.SetPhase(t.name, p)
	t.log.Debug().Str("phase", p.String()).Msg("transport phase")
}

// Publish normalizes into a RelayEvent and hands it to the bus.
func (t *BaseTransport) Publish(ctx context.Context, source, sourceChannelID string, kind bus.EventKind, actor, body string) {
	if body == "" {
		return
	}
	ev := bus.RelayEvent{
		ID:              uuid.NewString(),
		Source:          source,
		SourceChannelID: sourceChannelID,
		Kind:            kind,
		Actor:           actor,
		Body:            body,
	}
	if err := t.bus.Publish(ctx, ev); err != nil {
		t.log.Warn().Err(err).Str("event_id", ev.ID).Msg("event dropped, bus unavailable")
	}
}
