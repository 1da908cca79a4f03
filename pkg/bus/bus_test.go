package bus

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishConsume(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	ev := RelayEvent{ID: "1", Source: "Rizon", Kind: KindMessage, Actor: "alice", Body: "hi"}
	require.NoError(t, eb.Publish(context.Background(), ev))

	got, ok := eb.Consume(context.Background())
	require.True(t, ok)
	assert.Equal(t, ev, got)
}

func TestConsumePreservesOrder(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	for i := 0; i < 50; i++ {
		ev := RelayEvent{ID: fmt.Sprintf("%d", i), Source: "Rizon", Kind: KindMessage, Actor: "alice", Body: "m"}
		require.NoError(t, eb.Publish(context.Background(), ev))
	}
	for i := 0; i < 50; i++ {
		got, ok := eb.Consume(context.Background())
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("%d", i), got.ID)
	}
}

func TestPublishAfterClose(t *testing.T) {
	eb := NewEventBus()
	eb.Close()

	err := eb.Publish(context.Background(), RelayEvent{ID: "1"})
	assert.ErrorIs(t, err, ErrBusClosed)

	_, ok := eb.Consume(context.Background())
	assert.False(t, ok)
}

func TestConsumeCancelledContext(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := eb.Consume(ctx)
	assert.False(t, ok)
}
