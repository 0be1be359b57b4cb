package redisstreams

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udtkit/logging"
	"udtkit/messaging"
)

// fakeStreams 单消费组的内存流
type fakeStreams struct {
	mu      sync.Mutex
	entries map[string][]redis.XMessage
	cursor  map[string]int
	acked   []string
	groups  map[string]bool
}

func newFakeStreams() *fakeStreams {
	return &fakeStreams{entries: map[string][]redis.XMessage{}, cursor: map[string]int{}, groups: map[string]bool{}}
}

func (f *fakeStreams) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("%d-0", len(f.entries[a.Stream])+1)
	f.entries[a.Stream] = append(f.entries[a.Stream], redis.XMessage{ID: id, Values: a.Values.(map[string]any)})
	return redis.NewStringResult(id, nil)
}

func (f *fakeStreams) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	stream := a.Streams[0]
	deadline := time.Now().Add(a.Block)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		f.mu.Lock()
		pending := f.entries[stream][f.cursor[stream]:]
		if len(pending) > 0 {
			f.cursor[stream] += len(pending)
			out := append([]redis.XMessage(nil), pending...)
			f.mu.Unlock()
			return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: stream, Messages: out}}, nil)
		}
		f.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
}

func (f *fakeStreams) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func (f *fakeStreams) XGroupCreateMkStream(_ context.Context, stream, group, _ string) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stream + "/" + group
	if f.groups[key] {
		return redis.NewStatusResult("", fmt.Errorf("BUSYGROUP Consumer Group name already exists"))
	}
	f.groups[key] = true
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStreams) Close() error { return nil }

func TestEncodeDecode(t *testing.T) {
	m, err := messaging.NewMessage("udt.record.changed", map[string]string{"table": "ITEMS", "code": "7"})
	require.NoError(t, err)

	values, err := encodeMessage(m)
	require.NoError(t, err)
	decoded, err := decodeMessage(redis.XMessage{ID: "1-0", Values: values})
	require.NoError(t, err)
	assert.Equal(t, m.ID, decoded.ID)
	assert.Equal(t, m.Type, decoded.Type)
	assert.JSONEq(t, string(m.Payload), string(decoded.Payload))

	_, err = decodeMessage(redis.XMessage{ID: "2-0", Values: map[string]any{"type": "x"}})
	assert.Error(t, err)
}

func TestPublishSubscribe(t *testing.T) {
	fake := newFakeStreams()
	tpt := newWithClient(Config{
		StreamPrefix: "test:",
		BlockTimeout: 20 * time.Millisecond,
		Logger:       logging.NewNoopLogger(),
	}, fake)

	ctx := context.Background()
	assert.Error(t, tpt.Publish(ctx, &messaging.Message{Type: "x"}))
	assert.Error(t, tpt.Subscribe(messaging.Wildcard, messaging.HandlerFunc(func(context.Context, *messaging.Message) error { return nil })))

	var got atomic.Value
	require.NoError(t, tpt.Subscribe("udt.record.changed", messaging.HandlerFunc(func(_ context.Context, m *messaging.Message) error {
		got.Store(m.ID)
		return nil
	})))
	require.NoError(t, tpt.Start(ctx))

	m, err := messaging.NewMessage("udt.record.changed", map[string]string{"code": "1"})
	require.NoError(t, err)
	require.NoError(t, tpt.Publish(ctx, m))

	assert.Eventually(t, func() bool { return got.Load() == m.ID }, time.Second, 5*time.Millisecond)
	require.NoError(t, tpt.Close())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"1-0"}, fake.acked)
	assert.Len(t, fake.entries["test:udt.record.changed"], 1)
	assert.False(t, tpt.Stats().Running)
}
