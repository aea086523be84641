package availability

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"clinic/internal/metrics"
	"clinic/internal/schedule"
)

// BookableWindow is a resolved, date-stamped interval a booking could be offered in.
type BookableWindow struct {
	Date  civil.Date `json:"date"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

func (w BookableWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Resolver turns weekly rules and exceptions into bookable windows.
// It holds no per-call state and is safe for concurrent use.
type Resolver struct {
	logger *zerolog.Logger
}

// NewResolver creates a resolver. A nil logger discards skip events.
func NewResolver(logger *zerolog.Logger) *Resolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Resolver{logger: logger}
}

var defaultResolver = NewResolver(nil)

// Resolve is Resolver.Resolve with a silent logger.
func Resolve(rules schedule.GroupedRules, exceptions []schedule.ExceptionPeriod, cfg schedule.Config, from, to civil.Date) []BookableWindow {
	return defaultResolver.Resolve(rules, exceptions, cfg, from, to)
}

// Resolve returns the bookable windows for every date in [from, to], sorted by
// date and start. Dates covered by an exception produce nothing. Within a day,
// a later interval starting closer than the buffer to the previous window is
// pushed forward, and dropped if nothing is left.
// Malformed intervals are skipped rather than failing the call; an unknown
// time zone falls back to UTC.
func (r *Resolver) Resolve(rules schedule.GroupedRules, exceptions []schedule.ExceptionPeriod, cfg schedule.Config, from, to civil.Date) []BookableWindow {
	windows := make([]BookableWindow, 0)
	if from.After(to) {
		return windows
	}

	loc, err := cfg.Location()
	if err != nil {
		r.logger.Warn().Err(err).Str("time_zone", cfg.TimeZone).Msg("unknown time zone, resolving in UTC")
		loc = time.UTC
	}
	buffer := cfg.Buffer()
	byDay := r.indexRules(rules)

	for d := from; !d.After(to); d = d.AddDays(1) {
		intervals := byDay[weekday(d)]
		if len(intervals) == 0 {
			continue
		}
		if _, blocked := schedule.CoveringException(exceptions, d); blocked {
			continue
		}
		windows = append(windows, r.resolveDay(d, intervals, loc, buffer)...)
	}

	metrics.ObserveResolution(len(windows))
	return windows
}

// indexRules maps each weekday to its intervals. The first rule for a day wins.
func (r *Resolver) indexRules(rules schedule.GroupedRules) map[time.Weekday][]schedule.TimeInterval {
	byDay := make(map[time.Weekday][]schedule.TimeInterval, len(rules))
	for i, rule := range rules {
		if rule.Day < time.Sunday || rule.Day > time.Saturday {
			r.skip("invalid_day").Int("rule", i).Int("day_of_week", int(rule.Day)).Msg("rule skipped")
			continue
		}
		if _, dup := byDay[rule.Day]; dup {
			r.skip("duplicate_day").Int("rule", i).Str("day", schedule.DayName(rule.Day)).Msg("rule skipped")
			continue
		}
		byDay[rule.Day] = rule.Intervals
	}
	return byDay
}

type span struct {
	start, end time.Time
}

func (r *Resolver) resolveDay(d civil.Date, intervals []schedule.TimeInterval, loc *time.Location, buffer time.Duration) []BookableWindow {
	spans := make([]span, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.Valid() {
			r.skip("malformed").Str("date", d.String()).Str("interval", iv.String()).Msg("interval skipped")
			continue
		}
		s := span{start: iv.Start.On(d, loc), end: iv.End.On(d, loc)}
		if !s.start.Before(s.end) {
			// wall-clock interval swallowed by a DST transition
			r.skip("dst_gap").Str("date", d.String()).Str("interval", iv.String()).Msg("interval skipped")
			continue
		}
		spans = append(spans, s)
	}

	sort.Slice(spans, func(i, j int) bool {
		if !spans[i].start.Equal(spans[j].start) {
			return spans[i].start.Before(spans[j].start)
		}
		return spans[i].end.Before(spans[j].end)
	})

	out := make([]BookableWindow, 0, len(spans))
	var prevEnd time.Time
	for _, s := range spans {
		start := s.start
		if len(out) > 0 {
			if earliest := prevEnd.Add(buffer); start.Before(earliest) {
				start = earliest
			}
		}
		if !start.Before(s.end) {
			r.skip("buffer").Str("date", d.String()).Time("start", s.start).Time("end", s.end).Msg("interval consumed by buffer")
			continue
		}
		out = append(out, BookableWindow{Date: d, Start: start, End: s.end})
		prevEnd = s.end
	}
	return out
}

func (r *Resolver) skip(reason string) *zerolog.Event {
	metrics.IncIntervalSkipped(reason)
	return r.logger.Debug().Str("reason", reason)
}

func weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}
