package availability

import (
	"cloud.google.com/go/civil"

	"clinic/internal/schedule"
)

// BlockedDate is a date that has working hours but is removed by an exception.
type BlockedDate struct {
	Date   civil.Date `json:"date"`
	Reason string     `json:"reason,omitempty"`
}

// Blocked lists the dates in [from, to] whose weekly rule has intervals but
// which an exception period (or its annual projection) removes.
func Blocked(rules schedule.GroupedRules, exceptions []schedule.ExceptionPeriod, from, to civil.Date) []BlockedDate {
	out := make([]BlockedDate, 0)
	if from.After(to) || len(exceptions) == 0 {
		return out
	}

	working := make(map[int]bool, 7)
	for _, rule := range rules {
		if len(rule.Intervals) > 0 {
			working[int(rule.Day)] = true
		}
	}

	for d := from; !d.After(to); d = d.AddDays(1) {
		if !working[int(weekday(d))] {
			continue
		}
		if p, ok := schedule.CoveringException(exceptions, d); ok {
			out = append(out, BlockedDate{Date: d, Reason: p.Reason})
		}
	}
	return out
}
