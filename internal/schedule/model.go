package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DayUnset marks a record whose day of week was missing on the wire.
const DayUnset time.Weekday = -1

// TimeInterval is a time-of-day range [Start, End) without a date.
type TimeInterval struct {
	Start Clock `json:"startTime" yaml:"start"`
	End   Clock `json:"endTime" yaml:"end"`
}

// Valid reports whether both ends are in range and Start < End.
func (i TimeInterval) Valid() bool {
	return i.Start.Valid() && i.End.Valid() && i.Start < i.End
}

// Overlaps uses half-open semantics: touching intervals do not overlap.
func (i TimeInterval) Overlaps(o TimeInterval) bool {
	return i.Start < o.End && o.Start < i.End
}

func (i TimeInterval) Duration() time.Duration {
	return time.Duration(i.End-i.Start) * time.Minute
}

func (i TimeInterval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// WeeklyRule is the recurring availability of one day of week.
type WeeklyRule struct {
	Day       time.Weekday   `json:"dayOfWeek" yaml:"day_of_week"` // 0-6 (Sunday-Saturday)
	Intervals []TimeInterval `json:"intervals" yaml:"intervals"`
}

// SlotRecord is the flat storage row: one day and one interval.
type SlotRecord struct {
	Day   time.Weekday `json:"dayOfWeek"`
	Start Clock        `json:"startTime"`
	End   Clock        `json:"endTime"`
}

func (r SlotRecord) Interval() TimeInterval {
	return TimeInterval{Start: r.Start, End: r.End}
}

// Config holds per-professional resolution settings.
type Config struct {
	TimeZone      string `json:"timeZone" yaml:"time_zone"`
	BufferMinutes int    `json:"bufferMinutes" yaml:"buffer_minutes"`
}

// Location loads the configured IANA zone. An empty zone means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// Buffer returns the buffer as a duration; negative values count as zero.
func (c Config) Buffer() time.Duration {
	if c.BufferMinutes <= 0 {
		return 0
	}
	return time.Duration(c.BufferMinutes) * time.Minute
}

// Document is the availability part of a professional, stored as one record.
type Document struct {
	ProfessionalID uuid.UUID         `json:"professionalId"`
	Rules          FlatRecords       `json:"rules"`
	Exceptions     []ExceptionPeriod `json:"exceptions"`
	Config         Config            `json:"config"`
	Revision       int64             `json:"revision"`
	UpdatedBy      uuid.UUID         `json:"updatedBy"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// DayName returns the lowercase English day name, or "unset" for days outside 0-6.
func DayName(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return "unset"
	}
	return strings.ToLower(d.String())
}

// dayOrder sorts Monday first and Sunday last; unknown days go after Sunday.
func dayOrder(d time.Weekday) int {
	switch {
	case d >= time.Monday && d <= time.Saturday:
		return int(d) - 1
	case d == time.Sunday:
		return 6
	case d == DayUnset:
		return 7
	default:
		return 1000 + int(d)
	}
}
