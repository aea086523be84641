package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Clock is a wall-clock time of day with minute resolution, counted from midnight.
type Clock int

const (
	Midnight Clock = 0
	// EndOfDay is "24:00", allowed as the end of an interval that runs until midnight.
	EndOfDay Clock = 24 * 60
	// InvalidClock marks a time that was missing or not HH:MM on the wire.
	InvalidClock Clock = -1
)

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses "HH:MM". "24:00" is accepted as end of day.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format %q, expected HH:MM", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}

	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("time %q is out of range 00:00-24:00", s)
	}

	return NewClock(hour, minute), nil
}

// parseWireClock reads "HH:MM" without the range check so that "25:00" keeps
// its value for the validator. Anything else that is not HH:MM is InvalidClock.
func parseWireClock(s *string) Clock {
	if s == nil {
		return InvalidClock
	}
	parts := strings.Split(strings.TrimSpace(*s), ":")
	if len(parts) != 2 || strings.HasPrefix(parts[0], "-") || strings.HasPrefix(parts[1], "-") {
		return InvalidClock
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return InvalidClock
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute > 59 {
		return InvalidClock
	}
	return NewClock(hour, minute)
}

// MustParseClock is ParseClock for literals; it panics on bad input.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// Valid reports whether c lies within 00:00..24:00.
func (c Clock) Valid() bool {
	return c >= Midnight && c <= EndOfDay
}

func (c Clock) String() string {
	if c == InvalidClock {
		return "--:--"
	}
	if c < 0 {
		return fmt.Sprintf("-%02d:%02d", int(-c)/60, int(-c)%60)
	}
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On returns the absolute instant of c on date d in loc. 24:00 maps to the next
// midnight. A wall time skipped by a forward DST jump maps to the first wall
// time after the jump.
func (c Clock) On(d civil.Date, loc *time.Location) time.Time {
	t := time.Date(d.Year, d.Month, d.Day, c.Hour(), c.Minute(), 0, 0, loc)
	if !c.Valid() || c == EndOfDay || c.matches(t) {
		return t
	}
	for m := c + 1; m < EndOfDay; m++ {
		next := time.Date(d.Year, d.Month, d.Day, m.Hour(), m.Minute(), 0, 0, loc)
		if m.matches(next) {
			return next
		}
	}
	return EndOfDay.On(d, loc)
}

func (c Clock) matches(t time.Time) bool {
	return t.Hour() == c.Hour() && t.Minute() == c.Minute()
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
