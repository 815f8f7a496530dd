package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: TypeRosterImport, Body: []byte("a,b")}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	msg := receive(t, msgs)
	assert.Equal(t, TypeRosterImport, msg.Type)
	assert.Equal(t, "a,b", string(msg.Body))

	cancel()
	_, open := <-msgs
	assert.False(t, open)
}

func TestInMemory_PublishHonoursContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "x"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, Message{Type: "y"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisQueue_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewRedisQueue(client, "")
	q.block = 100 * time.Millisecond

	body := "Enrollment Number|Student Name\nE1|Ada"
	require.NoError(t, q.Publish(ctx, Message{Type: TypeRosterImport, Body: []byte(body)}))
	assert.Equal(t, 1, len(mustList(t, mr, DefaultKey)))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	msg := receive(t, msgs)
	assert.Equal(t, TypeRosterImport, msg.Type)
	assert.Equal(t, body, string(msg.Body))
}

func TestRedisQueue_RejectsUntypedMessage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	err := NewRedisQueue(client, "k").Publish(context.Background(), Message{Body: []byte("x")})
	assert.Error(t, err)
}

func TestDeserialize(t *testing.T) {
	assert.Equal(t, Message{Type: "t", Body: []byte("a|b")}, deserialize("t|a|b"))
	assert.Equal(t, Message{Body: []byte("plain")}, deserialize("plain"))
}

func mustList(t *testing.T, mr *miniredis.Miniredis, key string) []string {
	t.Helper()
	items, err := mr.List(key)
	require.NoError(t, err)
	return items
}
