package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/store"
)

// ErrDuplicate is returned when an insert hits the username or email
// uniqueness constraint.
var ErrDuplicate = errors.New("identity already exists")

// Identity is a registered account. Username and email together are the
// login key.
type Identity struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Fullname  string    `json:"fullname"`
	Email     string    `json:"email"`
	Branch    *string   `json:"branch"`
	Classroom *string   `json:"classroom"`
	CreatedAt time.Time `json:"-"`
}

// Contact is the username/email pair exposed to dashboards.
type Contact struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Repository persists identities.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether any identity uses username or email.
func (r *Repository) Exists(ctx context.Context, username, email string) (bool, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	var id string
	err := r.db.Client.QueryRowContext(ctx, `
		SELECT id FROM identities WHERE username = $1 OR email = $2 LIMIT 1
	`, username, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Insert stores a new identity. A uniqueness violation yields ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, ident *Identity) error {
	if ident.ID == "" {
		ident.ID = uuid.NewString()
	}
	ident.CreatedAt = time.Now().UTC()
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	_, err := r.db.Client.ExecContext(ctx, `
		INSERT INTO identities (id, username, fullname, email, branch, classroom, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ident.ID, ident.Username, ident.Fullname, ident.Email, ident.Branch, ident.Classroom, ident.CreatedAt)
	if store.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindByLogin returns the identity matching both username and email exactly,
// or nil.
func (r *Repository) FindByLogin(ctx context.Context, username, email string) (*Identity, error) {
	return r.findOne(ctx, `WHERE username = $1 AND email = $2`, username, email)
}

// FindByID returns the identity or nil.
func (r *Repository) FindByID(ctx context.Context, id string) (*Identity, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *Repository) findOne(ctx context.Context, where string, args ...any) (*Identity, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	row := r.db.Client.QueryRowContext(ctx, `
		SELECT id, username, fullname, email, branch, classroom, created_at
		FROM identities `+where, args...)
	var ident Identity
	if err := row.Scan(&ident.ID, &ident.Username, &ident.Fullname, &ident.Email, &ident.Branch, &ident.Classroom, &ident.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ident, nil
}

// Contacts lists every username with its email.
func (r *Repository) Contacts(ctx context.Context) ([]Contact, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	rows, err := r.db.Client.QueryContext(ctx, `SELECT username, email FROM identities ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []Contact{}
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.Username, &c.Email); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
