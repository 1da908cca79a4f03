// Package origin remembers which external message each bridged Discord
// post came from, so replies and reactions to bridged posts can be
// attributed to the original author instead of the bridge bot.
package origin

import (
	"strings"
	"sync"
)

// Record is the provenance of one bridged message.
type Record struct {
	Source string
	Actor  string
	Body   string
}

// Tracker is a bounded message-id to Record side table. When full, the
// oldest entry is evicted. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	capacity int
	records  map[string]Record
	order    []string
	next     int
}

func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = 512
	}
	return &Tracker{
		capacity: capacity,
		records:  make(map[string]Record, capacity),
		order:    make([]string, capacity),
	}
}

func (t *Tracker) Record(messageID string, rec Record) {
	if messageID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.records[messageID]; !ok {
		if evicted := t.order[t.next]; evicted != "" {
			delete(t.records, evicted)
		}
		t.order[t.next] = messageID
		t.next = (t.next + 1) % t.capacity
	}
	t.records[messageID] = rec
}

func (t *Tracker) Lookup(messageID string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[messageID]
	return rec, ok
}

// ParseEnvelope reverse-parses a rendered bridge line of the form
// "[Source] <Nick> body" or "[Source] * Nick body". It is only a
// fallback for messages posted before the current process started;
// live messages are resolved through the Tracker. Nicknames containing
// "> " defeat it, which is why the side table exists.
func ParseEnvelope(content string) (Record, bool) {
	if !strings.HasPrefix(content, "[") {
		return Record{}, false
	}
	end := strings.Index(content, "] ")
	if end < 0 {
		return Record{}, false
	}
	rec := Record{Source: content[1:end]}
	rest := content[end+2:]
	switch {
	case strings.HasPrefix(rest, "<"):
		close := strings.Index(rest, "> ")
		if close < 0 {
			return Record{}, false
		}
		rec.Actor = rest[1:close]
		rec.Body = rest[close+2:]
	case strings.HasPrefix(rest, "* "):
		actor, body, ok := strings.Cut(rest[2:], " ")
		if !ok {
			return Record{}, false
		}
		rec.Actor = actor
		rec.Body = body
	default:
		return Record{}, false
	}
	return rec, true
}
