package calendar

import (
	"errors"
	"strings"
	"time"
)

const layout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("calendar: invalid date, expected YYYY-MM-DD")
	ErrInvalidRange = errors.New("calendar: range end must not precede start")
)

// Date is a calendar day without time-of-day or zone. The zero value is "no date".
type Date struct {
	t time.Time
}

// NewDate builds a Date from its components; out-of-range values normalise like time.Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf takes the year/month/day of t as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// Parse reads a YYYY-MM-DD string.
func Parse(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{t: t}, nil
}

// MustParse is Parse for fixtures and tests.
func MustParse(raw string) Date {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(layout)
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.t }

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

func (d Date) After(other Date) bool { return d.t.After(other.t) }

func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// AddDays moves the date by n days.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil counts whole days from d to other; negative when other is earlier.
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Range is an inclusive [From, To] span of days.
type Range struct {
	From Date
	To   Date
}

func NewRange(from, to Date) (Range, error) {
	r := Range{From: from, To: to}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return ErrInvalidDate
	}
	if r.To.Before(r.From) {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Days is the number of days covered, both ends included.
func (r Range) Days() int {
	return r.From.DaysUntil(r.To) + 1
}
