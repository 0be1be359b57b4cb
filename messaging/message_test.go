package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"udtkit/logging"
)

type changed struct {
	Table string `json:"table"`
	Code  string `json:"code"`
}

func TestMessageRoundTrip(t *testing.T) {
	m, err := NewMessage("udt.record.changed", changed{Table: "ITEMS", Code: "10"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	m.SetMetadata("origin", "test")

	data, err := m.Marshal()
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, m.ID, back.ID)
	assert.Equal(t, m.Type, back.Type)
	assert.True(t, m.Timestamp.Equal(back.Timestamp))
	assert.Equal(t, "test", back.Metadata["origin"])

	var p changed
	require.NoError(t, back.Decode(&p))
	assert.Equal(t, changed{Table: "ITEMS", Code: "10"}, p)

	_, err = Unmarshal([]byte("{"))
	assert.Error(t, err)
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()
	var got []string
	record := func(tag string, err error) Handler {
		return HandlerFunc(func(ctx context.Context, m *Message) error {
			got = append(got, tag)
			return err
		})
	}

	assert.True(t, d.Add("a", record("a1", nil)))
	assert.False(t, d.Add("a", record("a2", errors.New("boom"))))
	d.Add(Wildcard, record("any", nil))

	logger := logging.NewMemoryLogger()
	d.Dispatch(context.Background(), &Message{ID: "1", Type: "a"}, logger)
	d.Dispatch(context.Background(), &Message{ID: "2", Type: "b"}, logger)

	assert.Equal(t, []string{"a1", "a2", "any", "any"}, got)
	assert.Equal(t, []string{"*", "a"}, d.Types())
	assert.Equal(t, 3, d.Count())
	assert.Len(t, logger.Find(logging.WarnLevel, "message handler failed"), 1)
}
