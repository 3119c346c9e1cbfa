// This file implements the Strategy Pattern for transaction occurrence.
// Each repetition type (daily, weekly, monthly, yearly) has its own checker
// that decides whether a date lines up with a transaction's start date.

package core

// OccurrenceChecker decides whether date is a repetition of start.
// Checkers only compare calendar positions; the start and end bounds are
// applied by Transaction.Occurs.
type OccurrenceChecker interface {
	Matches(date, start Date) bool
}

// OnceChecker matches the start date only.
type OnceChecker struct{}

func (OnceChecker) Matches(date, start Date) bool {
	return date.Time.Equal(start.Time)
}

// DailyChecker matches every date.
type DailyChecker struct{}

func (DailyChecker) Matches(_, _ Date) bool {
	return true
}

// WeeklyChecker matches dates on the start date's weekday.
type WeeklyChecker struct{}

func (WeeklyChecker) Matches(date, start Date) bool {
	return date.Weekday() == start.Weekday()
}

// MonthlyChecker matches dates with the start date's day of month.
//
// A start on the 31st never matches a shorter month; such months are skipped
// rather than rolled to their last day.
type MonthlyChecker struct{}

func (MonthlyChecker) Matches(date, start Date) bool {
	return date.Day() == start.Day()
}

// YearlyChecker matches dates with the start date's day-of-year ordinal.
//
// Ordinals drift by one day between leap and non-leap years for dates after
// February 28th.
type YearlyChecker struct{}

func (YearlyChecker) Matches(date, start Date) bool {
	return date.YearDay() == start.YearDay()
}

// occurrenceStrategies maps repetition types to their corresponding checkers.
var occurrenceStrategies = map[RepetitionTypes]OccurrenceChecker{
	NoRepetition: OnceChecker{},
	Daily:        DailyChecker{},
	Weekly:       WeeklyChecker{},
	Monthly:      MonthlyChecker{},
	Yearly:       YearlyChecker{},
}

// GetOccurrenceChecker returns the checker for a repetition type.
func GetOccurrenceChecker(every RepetitionTypes) (OccurrenceChecker, bool) {
	checker, ok := occurrenceStrategies[every]
	return checker, ok
}

// IsValid reports whether r has an occurrence checker.
func (r RepetitionTypes) IsValid() bool {
	_, ok := occurrenceStrategies[r]
	return ok
}
