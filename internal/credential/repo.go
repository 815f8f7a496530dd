package credential

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/store"
)

// Credential is the QR payload issued to a (username, email) pair.
type Credential struct {
	ID       string
	Username string
	Email    string
	Payload  string
	IssuedAt time.Time
}

// Repository persists credentials, one per (username, email).
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// Upsert stores payload for the pair unless a later issue is already stored.
// It reports whether the row was written.
func (r *Repository) Upsert(ctx context.Context, username, email, payload string, issuedAt time.Time) (bool, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	res, err := r.db.Client.ExecContext(ctx, `
		INSERT INTO credentials (id, username, email, payload, issued_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username, email)
		DO UPDATE SET payload = EXCLUDED.payload, issued_at = EXCLUDED.issued_at
		WHERE credentials.issued_at <= EXCLUDED.issued_at
	`, uuid.NewString(), username, email, payload, issuedAt.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Find returns the credential for the pair, or nil.
func (r *Repository) Find(ctx context.Context, username, email string) (*Credential, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	var c Credential
	err := r.db.Client.QueryRowContext(ctx, `
		SELECT id, username, email, payload, issued_at
		FROM credentials WHERE username = $1 AND email = $2
	`, username, email).Scan(&c.ID, &c.Username, &c.Email, &c.Payload, &c.IssuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
