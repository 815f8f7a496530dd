package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/apperr"
	"qrattend/internal/identity"
	"qrattend/internal/store"
	"qrattend/internal/testutil"
)

func countCredentials(t *testing.T, db *store.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Client.QueryRow(`SELECT COUNT(*) FROM credentials`).Scan(&n))
	return n
}

func TestIssue_ReissueReplacesPayload(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, IssueInput{Username: "DIP301", Email: "jane@x.com", Payload: "p1"}))
	require.NoError(t, svc.Issue(ctx, IssueInput{Username: "DIP301", Email: "jane@x.com", Payload: "p2"}))

	got, err := svc.Fetch(ctx, identity.Identity{Username: "DIP301", Email: "jane@x.com"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p2", *got)
	assert.Equal(t, 1, countCredentials(t, db))
}

func TestIssue_EmailIsCaseInsensitive(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, IssueInput{Username: "amy", Email: " Amy@X.com ", Payload: "p1"}))

	got, err := svc.Fetch(ctx, identity.Identity{Username: "amy", Email: "amy@x.com"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", *got)

	got, err = svc.Fetch(ctx, identity.Identity{Username: "amy", Email: "AMY@x.com"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, countCredentials(t, db))
}

func TestIssue_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	for _, in := range []IssueInput{
		{Email: "a@x.com", Payload: "p"},
		{Username: "amy", Payload: "p"},
		{Username: "amy", Email: "a@x.com"},
		{Username: " ", Email: " ", Payload: "p"},
	} {
		err := svc.Issue(ctx, in)
		assert.True(t, apperr.Is(err, apperr.KindBadRequest), "%+v", in)
	}
	assert.Equal(t, 0, countCredentials(t, db))
}

func TestFetch_NoneIssued(t *testing.T) {
	svc := NewService(NewRepository(testutil.NewDB(t)), nil)

	got, err := svc.Fetch(context.Background(), identity.Identity{Username: "amy", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCache_WriteThroughAndReadThrough(t *testing.T) {
	db := testutil.NewDB(t)
	client, mr := testutil.NewRedis(t)
	svc := NewService(NewRepository(db), NewRedisCache(client, time.Minute))
	ctx := context.Background()
	key := cacheKey("amy", "a@x.com")

	require.NoError(t, svc.Issue(ctx, IssueInput{Username: "amy", Email: "A@x.com", Payload: "p1"}))
	assert.Equal(t, "p1", mr.HGet(key, "payload"))
	assert.Equal(t, time.Minute, mr.TTL(key))

	got, err := svc.Fetch(ctx, identity.Identity{Username: "amy", Email: "a@x.com"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", *got)

	// After expiry the database answers and refills the cache.
	mr.FastForward(2 * time.Minute)
	require.False(t, mr.Exists(key))
	got, err = svc.Fetch(ctx, identity.Identity{Username: "amy", Email: "a@x.com"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", *got)
	assert.Equal(t, "p1", mr.HGet(key, "payload"))
}

func TestRedisCache_OlderWritesAreRefused(t *testing.T) {
	client, mr := testutil.NewRedis(t)
	cache := NewRedisCache(client, time.Minute)
	ctx := context.Background()
	t1 := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	require.NoError(t, cache.Set(ctx, "amy", "a@x.com", Entry{Payload: "p2", IssuedAt: t2}))
	// a fill that read the database before p2 was issued
	require.NoError(t, cache.Set(ctx, "amy", "a@x.com", Entry{Payload: "p1", IssuedAt: t1}))
	got, ok, err := cache.Get(ctx, "amy", "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p2", got)

	t3 := t2.Add(time.Second)
	require.NoError(t, cache.Invalidate(ctx, "amy", "a@x.com", t3))
	_, ok, err = cache.Get(ctx, "amy", "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(cacheKey("amy", "a@x.com")))

	require.NoError(t, cache.Set(ctx, "amy", "a@x.com", Entry{Payload: "p2", IssuedAt: t2}))
	_, ok, err = cache.Get(ctx, "amy", "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok, "invalidated entry must not be refilled with an older payload")

	require.NoError(t, cache.Set(ctx, "amy", "a@x.com", Entry{Payload: "p3", IssuedAt: t3}))
	got, ok, err = cache.Get(ctx, "amy", "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p3", got)
}

func TestIssue_CacheErrorNeverServesReplacedPayload(t *testing.T) {
	db := testutil.NewDB(t)
	client, mr := testutil.NewRedis(t)
	svc := NewService(NewRepository(db), NewRedisCache(client, time.Minute))
	ctx := context.Background()
	amy := identity.Identity{Username: "amy", Email: "a@x.com"}

	require.NoError(t, svc.Issue(ctx, IssueInput{Username: "amy", Email: "a@x.com", Payload: "p1"}))

	mr.SetError("LOADING transient")
	err := svc.Issue(ctx, IssueInput{Username: "amy", Email: "a@x.com", Payload: "p2"})
	assert.True(t, apperr.Is(err, apperr.KindDB), "cache left stale must fail the issue: %v", err)
	mr.SetError("")

	// the row was written even though the issue reported failure
	got, err := svc.Fetch(ctx, amy)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p2", *got)
	assert.Equal(t, "p2", mr.HGet(cacheKey("amy", "a@x.com"), "payload"))

	got, err = svc.Fetch(ctx, amy)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p2", *got)
}

func TestIssue_FailedCacheSetInvalidates(t *testing.T) {
	db := testutil.NewDB(t)
	client, _ := testutil.NewRedis(t)
	cache := &failingSetCache{RedisCache: NewRedisCache(client, time.Minute)}
	svc := NewService(NewRepository(db), cache)
	ctx := context.Background()
	amy := identity.Identity{Username: "amy", Email: "a@x.com"}

	require.NoError(t, svc.Issue(ctx, IssueInput{Username: "amy", Email: "a@x.com", Payload: "p1"}))
	cache.fail = true
	require.NoError(t, svc.Issue(ctx, IssueInput{Username: "amy", Email: "a@x.com", Payload: "p2"}))

	_, ok, err := cache.Get(ctx, "amy", "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok, "old payload must be dropped")

	got, err := svc.Fetch(ctx, amy)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p2", *got)
}

type failingSetCache struct {
	*RedisCache
	fail bool
}

func (c *failingSetCache) Set(ctx context.Context, username, email string, e Entry) error {
	if c.fail {
		c.fail = false
		return errors.New("set failed")
	}
	return c.RedisCache.Set(ctx, username, email, e)
}

func TestRedisCache_KeysDoNotCollide(t *testing.T) {
	assert.NotEqual(t, cacheKey("a", "b:c"), cacheKey("a:b", "c"))

	db := testutil.NewDB(t)
	client, _ := testutil.NewRedis(t)
	svc := NewService(NewRepository(db), NewRedisCache(client, time.Minute))
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, IssueInput{Username: "a", Email: "b:c", Payload: "secret-of-a"}))

	got, err := svc.Fetch(ctx, identity.Identity{Username: "a:b", Email: "c"})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = svc.Fetch(ctx, identity.Identity{Username: "a", Email: "b:c"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "secret-of-a", *got)
}

func TestRepository_UpsertKeepsLaterIssue(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	t1 := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Millisecond)

	written, err := repo.Upsert(ctx, "amy", "a@x.com", "p2", t2)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = repo.Upsert(ctx, "amy", "a@x.com", "p1", t1)
	require.NoError(t, err)
	assert.False(t, written)

	cred, err := repo.Find(ctx, "amy", "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "p2", cred.Payload)
	assert.True(t, t2.Equal(cred.IssuedAt))

	written, err = repo.Upsert(ctx, "amy", "a@x.com", "p3", t2)
	require.NoError(t, err)
	assert.True(t, written, "same instant replaces")
}

func TestRedisCache_OutageFallsBackToDatabase(t *testing.T) {
	db := testutil.NewDB(t)
	client, mr := testutil.NewRedis(t)
	svc := NewService(NewRepository(db), NewRedisCache(client, time.Minute))
	ctx := context.Background()

	mr.Close()
	err := svc.Issue(ctx, IssueInput{Username: "amy", Email: "a@x.com", Payload: "p1"})
	assert.True(t, apperr.Is(err, apperr.KindDB))
	assert.Equal(t, 1, countCredentials(t, db))

	got, err := svc.Fetch(ctx, identity.Identity{Username: "amy", Email: "a@x.com"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", *got)
}
