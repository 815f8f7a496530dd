// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"qrattend/internal/store"
)

// NewDB opens a migrated SQLite database in a temp dir, closed on cleanup.
func NewDB(t *testing.T) *store.DB {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), "ledger.db")
	db, err := store.NewDB(url, store.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

// NewRedis starts a miniredis instance and returns a client connected to it.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}
