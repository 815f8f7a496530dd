package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

// Driver names as registered with database/sql.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// DB wraps the process-wide sql.DB pool. Postgres goes through pgx; SQLite
// through go-sqlite3 for single-node deployments and tests.
type DB struct {
	Client  *sql.DB
	Driver  string
	Timeout time.Duration

	migrateMu sync.Mutex
	migrated  atomic.Bool
}

var errNoDB = errors.New("store: no database handle")

// Options tune the pool.
type Options struct {
	MaxOpenConns int
	Timeout      time.Duration
}

// NewDB opens the database named by url and pings it. A non-nil *DB is
// returned alongside a ping error so callers can start degraded.
func NewDB(url string, opts Options) (*DB, error) {
	driver, dsn, err := parseURL(url)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if driver == DriverSQLite {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY churn
		opts.MaxOpenConns = 1
	}
	idle := opts.MaxOpenConns / 2
	if idle < 1 {
		idle = 1
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(time.Hour)

	d := &DB{Client: db, Driver: driver, Timeout: opts.Timeout}
	ctx, cancel := d.Bound(context.Background())
	defer cancel()
	return d, db.PingContext(ctx)
}

func parseURL(url string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return "", "", errors.New("sqlite url needs a path")
		}
		return DriverSQLite, sqliteDSN(path), nil
	case strings.HasPrefix(url, "file:"):
		return DriverSQLite, url, nil
	default:
		return "", "", fmt.Errorf("unsupported database url %q", url)
	}
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

// Bound derives a context carrying the per-statement timeout. Acquiring a
// pooled connection counts against it, so an exhausted pool fails instead of
// hanging.
func (d *DB) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if d == nil || d.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.Timeout)
}

// Healthy reports whether the database answers a ping.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	ctx, cancel := d.Bound(ctx)
	defer cancel()
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// IsUniqueViolation reports whether err came from a unique or primary key
// constraint on either backend.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
