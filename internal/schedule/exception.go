package schedule

import (
	"strings"

	"cloud.google.com/go/civil"
)

// RecurrenceAnnual is the only recurrence pattern with a meaning today.
const RecurrenceAnnual = "annual"

// ExceptionPeriod is an inclusive whole-day range (vacation, absence) that
// removes otherwise available time.
type ExceptionPeriod struct {
	Start             civil.Date `json:"startDate" yaml:"start_date"`
	End               civil.Date `json:"endDate" yaml:"end_date"`
	Reason            string     `json:"reason,omitempty" yaml:"reason,omitempty"`
	RecurringAnnually bool       `json:"isRecurring" yaml:"is_recurring"`
	RecurrencePattern string     `json:"recurrencePattern,omitempty" yaml:"recurrence_pattern,omitempty"`
}

// Covers reports whether d falls inside the period or, for annual periods,
// inside its projection onto d's year. Projection compares month and day, so
// a Feb 29 bound only matches in leap years and a Dec-Jan period wraps.
// Annual periods never apply before their first occurrence.
// A malformed period (Start after End) covers nothing.
func (p ExceptionPeriod) Covers(d civil.Date) bool {
	if p.Start.After(p.End) {
		return false
	}
	if !p.RecurringAnnually {
		return !d.Before(p.Start) && !d.After(p.End)
	}
	if d.Before(p.Start) {
		return false
	}
	if p.End.DaysSince(p.Start) >= 365 {
		return true
	}

	from, to, day := monthDay(p.Start), monthDay(p.End), monthDay(d)
	if from <= to {
		return from <= day && day <= to
	}
	return day >= from || day <= to
}

// HasKnownPattern reports whether the recurrence descriptor is empty or annual.
func (p ExceptionPeriod) HasKnownPattern() bool {
	return p.RecurrencePattern == "" || strings.EqualFold(p.RecurrencePattern, RecurrenceAnnual)
}

// CoveringException returns the first period covering d.
func CoveringException(periods []ExceptionPeriod, d civil.Date) (ExceptionPeriod, bool) {
	for _, p := range periods {
		if p.Covers(d) {
			return p, true
		}
	}
	return ExceptionPeriod{}, false
}

func monthDay(d civil.Date) int {
	return int(d.Month)*100 + d.Day
}
