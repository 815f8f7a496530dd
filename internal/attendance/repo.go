package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/store"
)

// Record is one ledger entry: a student's attendance on a calendar day.
type Record struct {
	Date    Date `json:"date"`
	Present bool `json:"present"`
}

// Repository persists attendance records.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes the mark for (studentID, date) in one statement. The unique
// key on (student_id, date) turns a concurrent second insert into an update,
// so the ledger never holds two rows for the same day.
func (r *Repository) Upsert(ctx context.Context, studentID string, date Date, present bool) error {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	_, err := r.db.Client.ExecContext(ctx, `
		INSERT INTO attendance (id, student_id, date, present, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, date) DO UPDATE SET
			present = EXCLUDED.present,
			updated_at = EXCLUDED.updated_at
	`, uuid.NewString(), studentID, date, present, time.Now().UTC())
	return err
}

// ListByStudent returns the student's records, most recent first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]Record, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	rows, err := r.db.Client.QueryContext(ctx, `
		SELECT date, present
		FROM attendance
		WHERE student_id = $1
		ORDER BY date DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Date, &rec.Present); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
