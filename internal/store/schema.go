package store

import (
	"context"
	"log"
	"time"
)

// schema is written in the subset of SQL both Postgres and SQLite accept.
// The unique constraints carry the ledger's invariants: one student per
// enrollment number, one identity per username and per email, one credential
// per (username, email), one attendance record per (student, date).
const schema = `
CREATE TABLE IF NOT EXISTS students (
	id            TEXT PRIMARY KEY,
	enrollment_no TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	classroom     TEXT NOT NULL DEFAULT '',
	class_name    TEXT NOT NULL DEFAULT '',
	division      TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS identities (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL UNIQUE,
	fullname   TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	branch     TEXT,
	classroom  TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	id        TEXT PRIMARY KEY,
	username  TEXT NOT NULL,
	email     TEXT NOT NULL,
	payload   TEXT NOT NULL,
	issued_at TIMESTAMP NOT NULL,
	UNIQUE (username, email)
);

CREATE TABLE IF NOT EXISTS attendance (
	id         TEXT PRIMARY KEY,
	student_id TEXT NOT NULL REFERENCES students(id),
	date       DATE NOT NULL,
	present    BOOLEAN NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (student_id, date)
);

CREATE INDEX IF NOT EXISTS idx_attendance_student_date ON attendance(student_id, date);
`

// Migrate creates any missing tables. It is safe to run on every start.
func (d *DB) Migrate(ctx context.Context) error {
	ctx, cancel := d.Bound(ctx)
	defer cancel()
	if _, err := d.Client.ExecContext(ctx, schema); err != nil {
		return err
	}
	d.migrated.Store(true)
	return nil
}

// Migrated reports whether a Migrate call has succeeded on this handle.
func (d *DB) Migrated() bool {
	return d != nil && d.migrated.Load()
}

// EnsureSchema runs Migrate unless it already succeeded. Callers that find
// the database reachable again use it to finish a migration that failed at
// boot.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if d == nil || d.Client == nil {
		return errNoDB
	}
	if d.Migrated() {
		return nil
	}
	d.migrateMu.Lock()
	defer d.migrateMu.Unlock()
	if d.Migrated() {
		return nil
	}
	return d.Migrate(ctx)
}

// MigrateUntil retries EnsureSchema every interval until it succeeds or ctx
// is done.
func (d *DB) MigrateUntil(ctx context.Context, interval time.Duration) error {
	for {
		err := d.EnsureSchema(ctx)
		if err == nil {
			return nil
		}
		log.Printf("schema migration failed, retrying in %s: %v", interval, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
