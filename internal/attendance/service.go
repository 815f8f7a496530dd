package attendance

import (
	"context"
	"strings"

	"qrattend/internal/apperr"
	"qrattend/internal/metrics"
	"qrattend/internal/roster"
)

// StudentFinder resolves students by enrollment number.
type StudentFinder interface {
	GetByEnrollment(ctx context.Context, enrollmentNo string) (*roster.Student, error)
}

// History is a student's attendance, most recent first.
type History struct {
	Student roster.Student `json:"student"`
	Records []Record       `json:"records"`
}

// Service is the attendance ledger: at most one record per student per day.
type Service struct {
	repo     *Repository
	students StudentFinder
}

// NewService creates a ledger backed by a repository and the roster.
func NewService(repo *Repository, students StudentFinder) *Service {
	return &Service{repo: repo, students: students}
}

// Mark records the student as present (or not) on date. A nil present means
// present; absence has to be stated. Marking the same day again overwrites
// the value in place.
func (s *Service) Mark(ctx context.Context, enrollmentNo, date string, present *bool) error {
	enrollmentNo = strings.TrimSpace(enrollmentNo)
	if enrollmentNo == "" || strings.TrimSpace(date) == "" {
		return apperr.BadRequest("missing enrollment_no or date")
	}
	day, err := ParseDate(date)
	if err != nil {
		return apperr.BadRequest(err.Error())
	}
	value := true
	if present != nil {
		value = *present
	}

	student, err := s.students.GetByEnrollment(ctx, enrollmentNo)
	if err != nil {
		return apperr.Storage("attendance.mark: lookup student", err)
	}
	if student == nil {
		return apperr.NotFound("student not found")
	}
	if err := s.repo.Upsert(ctx, student.ID, day, value); err != nil {
		return apperr.Storage("attendance.mark", err)
	}
	metrics.AttendanceMarks.WithLabelValues(metrics.Bool(value)).Inc()
	return nil
}

// History returns the student with every record, newest day first.
func (s *Service) History(ctx context.Context, enrollmentNo string) (History, error) {
	enrollmentNo = strings.TrimSpace(enrollmentNo)
	if enrollmentNo == "" {
		return History{}, apperr.BadRequest("missing enrollment_no")
	}
	student, err := s.students.GetByEnrollment(ctx, enrollmentNo)
	if err != nil {
		return History{}, apperr.Storage("attendance.history: lookup student", err)
	}
	if student == nil {
		return History{}, apperr.NotFound("student not found")
	}
	records, err := s.repo.ListByStudent(ctx, student.ID)
	if err != nil {
		return History{}, apperr.Storage("attendance.history", err)
	}
	return History{Student: *student, Records: records}, nil
}
