package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/bridgeclaw/pkg/bus"
	"github.com/tinyland-inc/bridgeclaw/pkg/registry"
)

type memStore struct {
	blacklist map[string]registry.BlacklistEntry
}

func (m *memStore) GetAllBindings(context.Context) ([]registry.Binding, error) { return nil, nil }
func (m *memStore) UpsertBinding(context.Context, registry.Binding) error      { return nil }
func (m *memStore) GetAllBlacklist(context.Context) ([]registry.BlacklistEntry, error) {
	return nil, nil
}
func (m *memStore) InsertBlacklist(context.Context, registry.BlacklistEntry) error { return nil }
func (m *memStore) DeleteBlacklist(context.Context, string) error                  { return nil }

type fakeIRC struct {
	id   string
	fail bool

	mu   sync.Mutex
	sent []string
}

func (f *fakeIRC) ID() string { return f.id }

func (f *fakeIRC) Say(_ context.Context, text string) error {
	if f.fail {
		return errors.New("send refused")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeIRC) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeDiscord struct {
	mu   sync.Mutex
	sent map[string][]string // channel id -> texts
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{sent: make(map[string][]string)}
}

func (f *fakeDiscord) ID() string { return "Discord" }

func (f *fakeDiscord) SendTo(_ context.Context, channelID, text string, _ bus.RelayEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[channelID] = append(f.sent[channelID], text)
	return nil
}

func (f *fakeDiscord) sentTo(channelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent[channelID])
}

func testSetup(t *testing.T) (*Dispatcher, *State, *registry.Registry) {
	t.Helper()
	reg := registry.New(&memStore{}, zerolog.Nop())
	require.NoError(t, reg.Load(context.Background()))
	state := NewState("Rizon", "Furnet", "Discord")
	d := NewDispatcher(bus.NewEventBus(), state, reg, zerolog.Nop())
	return d, state, reg
}

func allReady(s *State) {
	for _, id := range []string{"Rizon", "Furnet", "Discord"} {
		s.SetPhase(id, PhaseReady)
	}
}

func ircEvent(id, source, body string) bus.RelayEvent {
	return bus.RelayEvent{ID: id, Source: source, Kind: bus.KindMessage, Actor: "alice", Body: body}
}

func waitSends(t *testing.T, want int, count func() int) {
	t.Helper()
	require.Eventually(t, func() bool { return count() == want }, time.Second, 5*time.Millisecond)
}

func TestNoEcho(t *testing.T) {
	d, state, _ := testSetup(t)
	allReady(state)
	rizon := &fakeIRC{id: "Rizon"}
	furnet := &fakeIRC{id: "Furnet"}
	d.AddIRCSink(rizon)
	d.AddIRCSink(furnet)

	d.dispatch(context.Background(), ircEvent("1", "Rizon", "hello"))

	waitSends(t, 1, furnet.sentCount)
	assert.Zero(t, rizon.sentCount(), "originating transport must never be fanned out to")
}

func TestReadinessGating(t *testing.T) {
	d, state, _ := testSetup(t)
	state.SetPhase("Rizon", PhaseReady)
	state.SetPhase("Discord", PhaseReady)
	// Furnet still authenticating.
	state.SetPhase("Furnet", PhaseAuthenticating)

	rizon := &fakeIRC{id: "Rizon"}
	furnet := &fakeIRC{id: "Furnet"}
	d.AddIRCSink(rizon)
	d.AddIRCSink(furnet)

	for i := 0; i < 20; i++ {
		d.dispatch(context.Background(), ircEvent(fmt.Sprint(i), "Rizon", "spam"))
	}
	assert.Empty(t, d.queues, "nothing may be enqueued before all transports are ready")
	assert.Zero(t, furnet.sentCount())
}

func TestDiscordFanOutSkipsBlacklistAndSourceChannel(t *testing.T) {
	d, state, reg := testSetup(t)
	allReady(state)
	ctx := context.Background()

	_, err := reg.Upsert(ctx, registry.Binding{GuildID: "g1", ChannelID: "c1"})
	require.NoError(t, err)
	_, err = reg.Upsert(ctx, registry.Binding{GuildID: "g2", ChannelID: "c2"})
	require.NoError(t, err)
	_, err = reg.Upsert(ctx, registry.Binding{GuildID: "g3", ChannelID: "c3"})
	require.NoError(t, err)
	_, err = reg.AddBlacklist(ctx, registry.BlacklistEntry{GuildID: "g3"})
	require.NoError(t, err)

	discord := newFakeDiscord()
	d.SetChannelSink(discord)

	ev := bus.RelayEvent{ID: "1", Source: "Guild One", SourceChannelID: "c1", Kind: bus.KindMessage, Actor: "bob", Body: "hi"}
	d.dispatch(ctx, ev)

	waitSends(t, 1, func() int { return discord.sentTo("c2") })
	assert.Zero(t, discord.sentTo("c1"), "must not echo into the originating channel")
	assert.Zero(t, discord.sentTo("c3"), "must not dispatch to a blacklisted guild")
}

func TestFanOutIsolation(t *testing.T) {
	d, state, reg := testSetup(t)
	allReady(state)
	ctx := context.Background()

	broken := &fakeIRC{id: "Rizon", fail: true}
	furnet := &fakeIRC{id: "Furnet"}
	d.AddIRCSink(broken)
	d.AddIRCSink(furnet)
	discord := newFakeDiscord()
	d.SetChannelSink(discord)
	_, err := reg.Upsert(ctx, registry.Binding{GuildID: "g1", ChannelID: "c1"})
	require.NoError(t, err)

	d.dispatch(ctx, bus.RelayEvent{ID: "1", Source: "Discord-origin", Kind: bus.KindMessage, Actor: "bob", Body: "hi"})

	waitSends(t, 1, furnet.sentCount)
	waitSends(t, 1, func() int { return discord.sentTo("c1") })
}

func TestPerDestinationOrdering(t *testing.T) {
	d, state, _ := testSetup(t)
	allReady(state)
	furnet := &fakeIRC{id: "Furnet"}
	d.AddIRCSink(furnet)

	const n = 50
	for i := 0; i < n; i++ {
		d.dispatch(context.Background(), ircEvent(fmt.Sprint(i), "Rizon", fmt.Sprintf("msg %d", i)))
	}

	waitSends(t, n, furnet.sentCount)
	furnet.mu.Lock()
	defer furnet.mu.Unlock()
	for i, text := range furnet.sent {
		assert.Contains(t, text, fmt.Sprintf("msg %d", i))
	}
}

func TestRunConsumesBus(t *testing.T) {
	d, state, _ := testSetup(t)
	allReady(state)
	furnet := &fakeIRC{id: "Furnet"}
	d.AddIRCSink(furnet)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.NoError(t, d.bus.Publish(ctx, ircEvent("1", "Rizon", "hello")))
	waitSends(t, 1, furnet.sentCount)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
