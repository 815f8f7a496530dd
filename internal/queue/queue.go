package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// TypeRosterImport carries a roster CSV export to be reconciled.
const TypeRosterImport = "roster.import"

// DefaultKey is the Redis list used for background jobs.
const DefaultKey = "qrattend:jobs"

// Message represents work to be processed.
type Message struct {
	Type string
	Body []byte
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// InMemory is a minimal channel-backed queue for single-process deployments.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers. It is closed once ctx is done.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a simple Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
	block  time.Duration
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key, block: 5 * time.Second}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	if msg.Type == "" {
		return errors.New("message type required")
	}
	return q.client.LPush(ctx, q.key, serialize(msg)).Err()
}

// Consume streams messages using BRPOP.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, q.block, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					// back off on connection errors instead of spinning
					select {
					case <-time.After(time.Second):
					case <-ctx.Done():
						return
					}
				}
				continue
			}
			if len(res) == 2 {
				select {
				case out <- deserialize(res[1]):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// serialize stores messages as Type|Body.
func serialize(msg Message) string {
	return msg.Type + "|" + string(msg.Body)
}

func deserialize(s string) Message {
	typ, body, ok := strings.Cut(s, "|")
	if !ok {
		return Message{Body: []byte(s)}
	}
	return Message{Type: typ, Body: []byte(body)}
}
