package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"

	// NoRepetition marks a transaction that occurs on its start date only.
	NoRepetition RepetitionTypes = ""
)

// DateLayout is the textual date format used in configuration and storage.
const DateLayout = "2006-01-02"

type (
	RepetitionTypes string

	// Date is a calendar day, always held as midnight UTC.
	Date struct {
		time.Time
	}

	// AccountID identifies an account within a simulation.
	AccountID struct {
		ID uint64
	}

	// AccountState is the value of one account on a given date.
	AccountState struct {
		Value Money
		Date  Date
	}
)

var (
	// ErrZeroDate means a required date was never set.
	ErrZeroDate          = errors.New("date is not set")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidRepetition = errors.New("invalid repetition type")
)

// Validate rejects the zero Date. Every other Date is a real calendar day.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// Equal reports whether d and o are the same calendar day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// ParseRepetition maps a textual repetition to RepetitionTypes.
// Blank and "none" mean NoRepetition.
func ParseRepetition(s string) (RepetitionTypes, error) {
	r := RepetitionTypes(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case Daily, Weekly, Monthly, Yearly, NoRepetition:
		return r, nil
	case "none":
		return NoRepetition, nil
	default:
		return NoRepetition, fmt.Errorf("%w: %q", ErrInvalidRepetition, s)
	}
}

// String implements fmt.Stringer
func (id AccountID) String() string {
	return fmt.Sprintf("%d", id.ID)
}
