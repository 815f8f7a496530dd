package roster

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/store"
)

// Student is an enrolled student. Rows are only created by the importer.
type Student struct {
	ID           string    `json:"id"`
	EnrollmentNo string    `json:"enrollment_no"`
	Name         string    `json:"name"`
	Classroom    string    `json:"classroom"`
	ClassName    string    `json:"class_name"`
	Division     string    `json:"division"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists the roster.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// InsertIfAbsent adds the student unless its enrollment number is already on
// the roster. Existing rows are left untouched. It reports whether a row was
// written.
func (r *Repository) InsertIfAbsent(ctx context.Context, s Student) (bool, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	res, err := r.db.Client.ExecContext(ctx, `
		INSERT INTO students (id, enrollment_no, name, classroom, class_name, division, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (enrollment_no) DO NOTHING
	`, s.ID, s.EnrollmentNo, s.Name, s.Classroom, s.ClassName, s.Division, s.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByEnrollment returns the student or nil when absent.
func (r *Repository) GetByEnrollment(ctx context.Context, enrollmentNo string) (*Student, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	row := r.db.Client.QueryRowContext(ctx, `
		SELECT id, enrollment_no, name, classroom, class_name, division, created_at
		FROM students WHERE enrollment_no = $1
	`, enrollmentNo)
	var s Student
	if err := row.Scan(&s.ID, &s.EnrollmentNo, &s.Name, &s.Classroom, &s.ClassName, &s.Division, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// List returns every student ordered by enrollment number.
func (r *Repository) List(ctx context.Context) ([]Student, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	rows, err := r.db.Client.QueryContext(ctx, `
		SELECT id, enrollment_no, name, classroom, class_name, division, created_at
		FROM students
		ORDER BY enrollment_no
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []Student{}
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.EnrollmentNo, &s.Name, &s.Classroom, &s.ClassName, &s.Division, &s.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Count returns the roster size.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.db.Bound(ctx)
	defer cancel()
	var n int
	err := r.db.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}
