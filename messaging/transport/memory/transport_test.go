package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udtkit/logging"
	"udtkit/messaging"
)

func counter(n *int32) messaging.Handler {
	return messaging.HandlerFunc(func(ctx context.Context, m *messaging.Message) error {
		atomic.AddInt32(n, 1)
		return nil
	})
}

func TestPublishFlow(t *testing.T) {
	tpt := New(16, 2, logging.NewNoopLogger())
	ctx := context.Background()
	require.NoError(t, tpt.Start(ctx))

	var cnt int32
	require.NoError(t, tpt.Subscribe("udt.record.changed", counter(&cnt)))
	require.NoError(t, tpt.Publish(ctx, &messaging.Message{ID: "m1", Type: "udt.record.changed"}))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&cnt) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, tpt.Close())
}

func TestCloseDrainsQueue(t *testing.T) {
	tpt := New(16, 1, logging.NewNoopLogger())
	ctx := context.Background()
	var cnt int32
	require.NoError(t, tpt.Subscribe(messaging.Wildcard, counter(&cnt)))
	require.NoError(t, tpt.Start(ctx))

	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, tpt.Publish(ctx, &messaging.Message{ID: id, Type: "x"}))
	}
	require.NoError(t, tpt.Close())
	assert.Equal(t, int32(3), atomic.LoadInt32(&cnt))

	assert.ErrorIs(t, tpt.Publish(ctx, &messaging.Message{ID: "late"}), ErrNotRunning)
	assert.NoError(t, tpt.Close())
}

func TestQueueFull(t *testing.T) {
	tpt := New(1, 1, logging.NewNoopLogger())
	ctx := context.Background()
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	require.NoError(t, tpt.Subscribe("slow", messaging.HandlerFunc(func(ctx context.Context, m *messaging.Message) error {
		started <- struct{}{}
		<-block
		return nil
	})))
	require.NoError(t, tpt.Start(ctx))

	require.NoError(t, tpt.Publish(ctx, &messaging.Message{ID: "1", Type: "slow"}))
	<-started
	require.NoError(t, tpt.Publish(ctx, &messaging.Message{ID: "2", Type: "slow"}))
	assert.ErrorIs(t, tpt.Publish(ctx, &messaging.Message{ID: "3", Type: "slow"}), ErrQueueFull)

	stats := tpt.Stats()
	assert.True(t, stats.Running)
	assert.Equal(t, 1, stats.QueueDepth)
	assert.Equal(t, []string{"slow"}, stats.MessageTypes)

	close(block)
	require.NoError(t, tpt.Close())
}
