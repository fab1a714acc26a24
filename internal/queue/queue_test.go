package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRoundTrip(t *testing.T) {
	q := NewInMemory(2)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, Message{Type: TypeSummary, Body: []byte(`{"person_id":"p1"}`)}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	msg := <-msgs
	assert.Equal(t, TypeSummary, msg.Type)
	assert.Equal(t, `{"person_id":"p1"}`, string(msg.Body))
}

func TestPublishHonorsContextWhenFull(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, Message{Type: TypeNotify}))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err := q.Publish(cancelled, Message{Type: TypeNotify})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: TypeNotify, Body: []byte(`{"title":"leave approved|see details"}`)}
	got := deserialize(serialize(msg))
	assert.Equal(t, msg.Type, got.Type)
	assert.Equal(t, string(msg.Body), string(got.Body))
}

func TestDeserializeWithoutType(t *testing.T) {
	got := deserialize("no-separator-here")
	assert.Empty(t, got.Type)
	assert.Equal(t, "no-separator-here", string(got.Body))
}
