package schedule

import (
	"sort"
	"time"
)

// Shape is either FlatRecords (storage rows) or GroupedRules (one row per day).
type Shape interface {
	isShape()
}

// FlatRecords is the stored and transmitted shape: one record per day and interval.
type FlatRecords []SlotRecord

// GroupedRules is the edited shape: one rule per day with its intervals.
type GroupedRules []WeeklyRule

func (FlatRecords) isShape()  {}
func (GroupedRules) isShape() {}

// ToEditable groups flat records by day. Days come out Monday first and
// Sunday last, intervals by ascending start. Grouped input is returned as is,
// so ToEditable(ToEditable(x)) equals ToEditable(x).
// Nothing is dropped: invalid intervals and unset days are kept for the validator.
func ToEditable(s Shape) GroupedRules {
	switch v := s.(type) {
	case GroupedRules:
		return v
	case FlatRecords:
		return group(v)
	default:
		return nil
	}
}

// ToStorage emits one flat record per (day, interval) pair.
func ToStorage(rules GroupedRules) FlatRecords {
	out := make(FlatRecords, 0, len(rules))
	for _, rule := range rules {
		for _, iv := range rule.Intervals {
			out = append(out, SlotRecord{Day: rule.Day, Start: iv.Start, End: iv.End})
		}
	}
	return out
}

// Flatten returns the storage shape of either input shape.
func Flatten(s Shape) FlatRecords {
	switch v := s.(type) {
	case FlatRecords:
		return v
	case GroupedRules:
		return ToStorage(v)
	default:
		return FlatRecords{}
	}
}

func group(records FlatRecords) GroupedRules {
	byDay := make(map[time.Weekday][]TimeInterval)
	days := make([]time.Weekday, 0, 7)
	for _, r := range records {
		if _, ok := byDay[r.Day]; !ok {
			days = append(days, r.Day)
		}
		byDay[r.Day] = append(byDay[r.Day], r.Interval())
	}

	sort.Slice(days, func(i, j int) bool {
		return dayOrder(days[i]) < dayOrder(days[j])
	})

	out := make(GroupedRules, 0, len(days))
	for _, d := range days {
		intervals := byDay[d]
		sortIntervals(intervals)
		out = append(out, WeeklyRule{Day: d, Intervals: intervals})
	}
	return out
}

func sortIntervals(intervals []TimeInterval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		if intervals[i].Start != intervals[j].Start {
			return intervals[i].Start < intervals[j].Start
		}
		return intervals[i].End < intervals[j].End
	})
}

// Clone returns a deep copy.
func (g GroupedRules) Clone() GroupedRules {
	if g == nil {
		return nil
	}
	out := make(GroupedRules, len(g))
	for i, rule := range g {
		out[i] = WeeklyRule{Day: rule.Day, Intervals: append([]TimeInterval(nil), rule.Intervals...)}
	}
	return out
}

// Rule returns the first rule for day.
func (g GroupedRules) Rule(day time.Weekday) (WeeklyRule, bool) {
	for _, rule := range g {
		if rule.Day == day {
			return rule, true
		}
	}
	return WeeklyRule{}, false
}

// WithInterval returns a copy with iv appended to day's rule, creating the rule if needed.
func (g GroupedRules) WithInterval(day time.Weekday, iv TimeInterval) GroupedRules {
	out := g.Clone()
	for i := range out {
		if out[i].Day == day {
			out[i].Intervals = append(out[i].Intervals, iv)
			return out
		}
	}
	return append(out, WeeklyRule{Day: day, Intervals: []TimeInterval{iv}})
}

// WithoutInterval returns a copy with the slot at index removed from day's rule.
// An out-of-range index returns an unchanged copy.
func (g GroupedRules) WithoutInterval(day time.Weekday, slot int) GroupedRules {
	out := g.Clone()
	for i := range out {
		if out[i].Day != day {
			continue
		}
		if slot < 0 || slot >= len(out[i].Intervals) {
			return out
		}
		out[i].Intervals = append(out[i].Intervals[:slot], out[i].Intervals[slot+1:]...)
		return out
	}
	return out
}

// WithDay returns a copy where day's intervals are replaced. Empty intervals remove the day.
func (g GroupedRules) WithDay(day time.Weekday, intervals []TimeInterval) GroupedRules {
	out := make(GroupedRules, 0, len(g)+1)
	replaced := false
	for _, rule := range g.Clone() {
		if rule.Day != day {
			out = append(out, rule)
			continue
		}
		if !replaced && len(intervals) > 0 {
			out = append(out, WeeklyRule{Day: day, Intervals: append([]TimeInterval(nil), intervals...)})
		}
		replaced = true
	}
	if !replaced && len(intervals) > 0 {
		out = append(out, WeeklyRule{Day: day, Intervals: append([]TimeInterval(nil), intervals...)})
	}
	return out
}
