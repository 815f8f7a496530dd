package attendance

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no time component. It is stored as midnight
// UTC so the (student, date) key compares equal on every backend.
type Date struct {
	t time.Time
}

// NewDate returns the calendar day y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD, or an RFC 3339 timestamp whose calendar day
// (in its own offset) is taken.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return NewDate(t.Date()), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t.Date()), nil
	}
	return Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.t }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.t.IsZero() }

// String formats the day as YYYY-MM-DD.
func (d Date) String() string { return d.t.Format(dateLayout) }

// MarshalJSON encodes the day as a "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts any string ParseDate accepts.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.t, nil
}

// Scan implements sql.Scanner. Postgres hands back time.Time for DATE
// columns; SQLite may hand back text.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v.Date())
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanText(s string) error {
	if len(s) < len(dateLayout) {
		return fmt.Errorf("invalid stored date %q", s)
	}
	t, err := time.Parse(dateLayout, s[:len(dateLayout)])
	if err != nil {
		return fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	*d = NewDate(t.Date())
	return nil
}
