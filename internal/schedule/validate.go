package schedule

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError is one field-addressable problem, rendered verbatim by the editing UI.
type ValidationError struct {
	Field     string       `json:"field"`
	Day       time.Weekday `json:"dayOfWeek"`
	Index     int          `json:"index"`     // position of the rule or exception in the input
	Slot      int          `json:"slot"`      // -1 when the error is about the whole entry
	OtherSlot int          `json:"otherSlot"` // -1 unless the error relates two slots
	Message   string       `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is the full list of problems found in one pass.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidateRules checks that every interval is well formed, that intervals of
// a day do not overlap and that each day has at most one rule. It reports
// everything it finds and never modifies rules.
func ValidateRules(rules GroupedRules) ValidationErrors {
	var errs ValidationErrors
	firstRule := make(map[time.Weekday]int)

	for ri, rule := range rules {
		name := dayLabel(rule.Day)

		if rule.Day < time.Sunday || rule.Day > time.Saturday {
			errs = append(errs, ruleError(ri, rule.Day, fmt.Sprintf("rules[%d].dayOfWeek", ri),
				"day_of_week must be between 0 (Sunday) and 6 (Saturday)"))
		} else if first, dup := firstRule[rule.Day]; dup {
			errs = append(errs, ruleError(ri, rule.Day, fmt.Sprintf("rules[%d]", ri),
				fmt.Sprintf("%s already has a rule at rules[%d]", name, first)))
		} else {
			firstRule[rule.Day] = ri
		}

		for si, iv := range rule.Intervals {
			field := fmt.Sprintf("rules[%d].intervals[%d]", ri, si)
			switch {
			case iv.Start == InvalidClock:
				errs = append(errs, slotError(ri, rule.Day, si, field,
					fmt.Sprintf("%s slot %d: start time is missing or not HH:MM", name, si)))
			case iv.End == InvalidClock:
				errs = append(errs, slotError(ri, rule.Day, si, field,
					fmt.Sprintf("%s slot %d: end time is missing or not HH:MM", name, si)))
			case !iv.Start.Valid():
				errs = append(errs, slotError(ri, rule.Day, si, field,
					fmt.Sprintf("%s slot %d: start time %s is outside 00:00-24:00", name, si, iv.Start)))
			case !iv.End.Valid():
				errs = append(errs, slotError(ri, rule.Day, si, field,
					fmt.Sprintf("%s slot %d: end time %s is outside 00:00-24:00", name, si, iv.End)))
			case iv.Start >= iv.End:
				errs = append(errs, slotError(ri, rule.Day, si, field,
					fmt.Sprintf("%s slot %d: start time %s must be before end time %s", name, si, iv.Start, iv.End)))
			}
		}

		for i := 0; i < len(rule.Intervals); i++ {
			a := rule.Intervals[i]
			if !a.Valid() {
				continue
			}
			for j := i + 1; j < len(rule.Intervals); j++ {
				b := rule.Intervals[j]
				if !b.Valid() || !a.Overlaps(b) {
					continue
				}
				e := slotError(ri, rule.Day, i, fmt.Sprintf("rules[%d].intervals[%d]", ri, j),
					fmt.Sprintf("%s slot %d (%s) overlaps slot %d (%s)", name, i, a, j, b))
				e.OtherSlot = j
				errs = append(errs, e)
			}
		}
	}
	return errs
}

// ValidateExceptions checks each period on its own. Overlapping periods are allowed.
func ValidateExceptions(periods []ExceptionPeriod) ValidationErrors {
	var errs ValidationErrors
	for i, p := range periods {
		prefix := fmt.Sprintf("exceptions[%d]", i)
		switch {
		case !p.Start.IsValid():
			errs = append(errs, exceptionError(i, prefix+".startDate", "start date is required (YYYY-MM-DD)"))
		case !p.End.IsValid():
			errs = append(errs, exceptionError(i, prefix+".endDate", "end date is required (YYYY-MM-DD)"))
		case p.Start.After(p.End):
			errs = append(errs, exceptionError(i, prefix+".endDate",
				fmt.Sprintf("start date %s must not be after end date %s", p.Start, p.End)))
		}
		if !p.HasKnownPattern() {
			errs = append(errs, exceptionError(i, prefix+".recurrencePattern",
				fmt.Sprintf("unsupported recurrence pattern %q", p.RecurrencePattern)))
		}
	}
	return errs
}

// ValidateConfig checks the time zone and buffer.
func ValidateConfig(cfg Config) ValidationErrors {
	var errs ValidationErrors
	if cfg.BufferMinutes < 0 {
		errs = append(errs, configError("config.bufferMinutes", "buffer minutes cannot be negative"))
	}
	if _, err := cfg.Location(); err != nil {
		errs = append(errs, configError("config.timeZone", fmt.Sprintf("unknown time zone %q", cfg.TimeZone)))
	}
	return errs
}

// Validate runs all three checks.
func Validate(rules GroupedRules, periods []ExceptionPeriod, cfg Config) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, ValidateRules(rules)...)
	errs = append(errs, ValidateExceptions(periods)...)
	errs = append(errs, ValidateConfig(cfg)...)
	return errs
}

func dayLabel(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return "Unset day"
	}
	return d.String()
}

func ruleError(index int, day time.Weekday, field, msg string) ValidationError {
	return ValidationError{Field: field, Day: day, Index: index, Slot: -1, OtherSlot: -1, Message: msg}
}

func slotError(index int, day time.Weekday, slot int, field, msg string) ValidationError {
	return ValidationError{Field: field, Day: day, Index: index, Slot: slot, OtherSlot: -1, Message: msg}
}

func exceptionError(index int, field, msg string) ValidationError {
	return ValidationError{Field: field, Day: DayUnset, Index: index, Slot: -1, OtherSlot: -1, Message: msg}
}

func configError(field, msg string) ValidationError {
	return ValidationError{Field: field, Day: DayUnset, Index: -1, Slot: -1, OtherSlot: -1, Message: msg}
}
