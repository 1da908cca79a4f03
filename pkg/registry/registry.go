// Package registry caches the durable guild bindings and blacklist in
// memory. Reads are O(1) map lookups; writes hit the store first and
// mutate the cache only after the durable write succeeds, so the cache
// never diverges from a known store state.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Binding maps a Discord guild to the channel bridged messages land in.
// The names are for logs and command replies only.
type Binding struct {
	GuildID     string
	ChannelID   string
	GuildName   string
	ChannelName string
}

// BlacklistEntry excludes a guild from both inbound acceptance and
// outbound fan-out. The guild's binding is kept so removing the entry
// restores prior behavior without re-binding.
type BlacklistEntry struct {
	GuildID       string
	Reason        string
	BlacklistedBy string
	CreatedAt     time.Time
}

// Store is the durable backing for the registry.
type Store interface {
	GetAllBindings(ctx context.Context) ([]Binding, error)
	UpsertBinding(ctx context.Context, b Binding) error
	GetAllBlacklist(ctx context.Context) ([]BlacklistEntry, error)
	// InsertBlacklist must ignore conflicts on an existing guild id,
	// preserving the first-written entry.
	InsertBlacklist(ctx context.Context, e BlacklistEntry) error
	DeleteBlacklist(ctx context.Context, guildID string) error
}

type Registry struct {
	store Store
	log   zerolog.Logger

	mu        sync.RWMutex
	bindings  map[string]Binding
	blacklist map[string]BlacklistEntry
}

func New(store Store, log zerolog.Logger) *Registry {
	return &Registry{
		store:     store,
		log:       log.With().Str("component", "registry").Logger(),
		bindings:  make(map[string]Binding),
		blacklist: make(map[string]BlacklistEntry),
	}
}

// Load populates the cache from the store. A failure here means the
// registry state cannot be trusted; callers treat it as fatal.
func (r *Registry) Load(ctx context.Context) error {
	bindings, err := r.store.GetAllBindings(ctx)
	if err != nil {
		return fmt.Errorf("load bindings: %w", err)
	}
	entries, err := r.store.GetAllBlacklist(ctx)
	if err != nil {
		return fmt.Errorf("load blacklist: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = make(map[string]Binding, len(bindings))
	for _, b := range bindings {
		r.bindings[b.GuildID] = b
	}
	r.blacklist = make(map[string]BlacklistEntry, len(entries))
	for _, e := range entries {
		r.blacklist[e.GuildID] = e
	}
	r.log.Info().Int("bindings", len(bindings)).Int("blacklisted", len(entries)).Msg("registry loaded")
	return nil
}

func (r *Registry) Lookup(guildID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[guildID]
	return b, ok
}

// Bindings returns a snapshot of all bindings.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b)
	}
	return out
}

// Upsert persists the binding, then updates the cache. The returned
// bool reports whether an earlier binding for the guild was replaced.
func (r *Registry) Upsert(ctx context.Context, b Binding) (replaced bool, err error) {
	if err := r.store.UpsertBinding(ctx, b); err != nil {
		return false, fmt.Errorf("upsert binding for guild %s: %w", b.GuildID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced = r.bindings[b.GuildID]
	r.bindings[b.GuildID] = b
	return replaced, nil
}

func (r *Registry) IsBlacklisted(guildID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.blacklist[guildID]
	return ok
}

// AddBlacklist persists the entry and updates the cache. Adding a guild
// that is already blacklisted is a no-op and keeps the original entry.
func (r *Registry) AddBlacklist(ctx context.Context, e BlacklistEntry) (added bool, err error) {
	r.mu.RLock()
	_, exists := r.blacklist[e.GuildID]
	r.mu.RUnlock()
	if exists {
		return false, nil
	}
	if err := r.store.InsertBlacklist(ctx, e); err != nil {
		return false, fmt.Errorf("insert blacklist entry for guild %s: %w", e.GuildID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.blacklist[e.GuildID]; exists {
		return false, nil
	}
	r.blacklist[e.GuildID] = e
	return true, nil
}

// RemoveBlacklist deletes the entry; removing an absent guild is a no-op.
func (r *Registry) RemoveBlacklist(ctx context.Context, guildID string) error {
	if err := r.store.DeleteBlacklist(ctx, guildID); err != nil {
		return fmt.Errorf("delete blacklist entry for guild %s: %w", guildID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blacklist, guildID)
	return nil
}
