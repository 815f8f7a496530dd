package credential

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is a cached payload stamped with the issue time it came from.
type Entry struct {
	Payload  string
	IssuedAt time.Time
}

// Cache holds recently issued payloads in front of the database. A miss is
// reported as ok == false with a nil error.
//
// Writes are ordered by IssuedAt: Set and Invalidate leave the entry alone
// when it was issued later than the write, so a slow fill cannot bring back a
// replaced payload.
type Cache interface {
	Get(ctx context.Context, username, email string) (payload string, ok bool, err error)
	Set(ctx context.Context, username, email string, e Entry) error
	// Invalidate drops the cached payload and refuses fills issued before
	// issuedAt until the entry expires.
	Invalidate(ctx context.Context, username, email string, issuedAt time.Time) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string, string) (string, bool, error) { return "", false, nil }

func (NopCache) Set(context.Context, string, string, Entry) error { return nil }

func (NopCache) Invalidate(context.Context, string, string, time.Time) error { return nil }

// RedisCache keeps one hash per pair holding issued_at (unix microseconds)
// and payload. An invalidated pair keeps issued_at without a payload.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache returns a cache backed by client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// cacheKey escapes both parts so that no two pairs share a key.
func cacheKey(username, email string) string {
	return "credential:" + url.QueryEscape(username) + ":" + url.QueryEscape(email)
}

// KEYS[1] key; ARGV[1] issued_at micros; ARGV[2] ttl millis; ARGV[3] payload,
// absent for an invalidation.
var storeIfNewer = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'issued_at'))
if cur and cur > tonumber(ARGV[1]) then
	return 0
end
redis.call('DEL', KEYS[1])
if ARGV[3] then
	redis.call('HSET', KEYS[1], 'issued_at', ARGV[1], 'payload', ARGV[3])
else
	redis.call('HSET', KEYS[1], 'issued_at', ARGV[1])
end
if tonumber(ARGV[2]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

func (c *RedisCache) Get(ctx context.Context, username, email string) (string, bool, error) {
	val, err := c.client.HGet(ctx, cacheKey(username, email), "payload").Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, username, email string, e Entry) error {
	return storeIfNewer.Run(ctx, c.client, []string{cacheKey(username, email)},
		e.IssuedAt.UnixMicro(), c.ttl.Milliseconds(), e.Payload).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, username, email string, issuedAt time.Time) error {
	return storeIfNewer.Run(ctx, c.client, []string{cacheKey(username, email)},
		issuedAt.UnixMicro(), c.ttl.Milliseconds()).Err()
}
