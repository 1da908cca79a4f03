package channels

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/bridgeclaw/pkg/bus"
	"github.com/tinyland-inc/bridgeclaw/pkg/relay"
)

func TestDiscordGatewayDropRegatesDispatch(t *testing.T) {
	state := relay.NewState()
	eb := bus.NewEventBus()
	defer eb.Close()

	d := NewDiscord("token", nil, nil, nil, eb, state, zerolog.Nop())
	state.SetPhase(d.Name(), relay.PhaseReady)
	require.True(t, state.AllReady())

	d.onDisconnect(nil, nil)
	assert.Equal(t, relay.PhaseDisconnected, state.Phase(d.Name()))
	assert.False(t, state.AllReady())

	d.onResumed(nil, nil)
	assert.Equal(t, relay.PhaseReady, state.Phase(d.Name()))
	assert.True(t, state.AllReady())
}
