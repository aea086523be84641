package availability

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic/internal/schedule"
)

func TestSplitWindows(t *testing.T) {
	windows := []BookableWindow{
		{Date: monday, Start: at(monday, 9, 0), End: at(monday, 10, 0)},
		{Date: monday, Start: at(monday, 13, 0), End: at(monday, 13, 45)},
	}

	tests := []struct {
		name     string
		duration time.Duration
		step     time.Duration
		now      time.Time
		want     int
	}{
		{name: "30 minute slots", duration: 30 * time.Minute, want: 3},
		{name: "15 minute step", duration: 30 * time.Minute, step: 15 * time.Minute, want: 5},
		{name: "too long", duration: 2 * time.Hour, want: 0},
		{name: "past slots dropped", duration: 30 * time.Minute, now: at(monday, 9, 10), want: 2},
		{name: "zero duration", duration: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitWindows(windows, tt.duration, tt.step, tt.now)
			assert.Len(t, got, tt.want)
			for _, s := range got {
				assert.Equal(t, tt.duration, s.End.Sub(s.Start))
			}
		})
	}
}

func TestToSlotInfo(t *testing.T) {
	slots := []Slot{{Start: at(monday, 9, 0), End: at(monday, 9, 30)}}
	info := ToSlotInfo(slots)
	require.Len(t, info, 1)
	assert.Equal(t, SlotInfo{Date: "2025-03-03", Start: "09:00", End: "09:30"}, info[0])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45m", FormatDuration(45*time.Minute))
	assert.Equal(t, "2h", FormatDuration(2*time.Hour))
	assert.Equal(t, "1h 30m", FormatDuration(90*time.Minute))
}

func TestBlocked(t *testing.T) {
	rules := schedule.GroupedRules{
		{Day: time.Monday, Intervals: []schedule.TimeInterval{iv("09:00", "17:00")}},
		{Day: time.Tuesday},
	}
	exceptions := []schedule.ExceptionPeriod{{Start: monday, End: monday.AddDays(7), Reason: "Vacation"}}

	got := Blocked(rules, exceptions, monday.AddDays(-1), monday.AddDays(14))

	assert.Equal(t, []BlockedDate{
		{Date: monday, Reason: "Vacation"},
		{Date: monday.AddDays(7), Reason: "Vacation"},
	}, got)
	assert.Empty(t, Blocked(rules, nil, monday, monday))
	assert.Empty(t, Blocked(rules, exceptions, monday, civil.Date{Year: 2025, Month: time.March, Day: 1}))

	windows := Resolve(rules, exceptions, schedule.Config{}, monday, monday.AddDays(14))
	require.Len(t, windows, 1)
	assert.Equal(t, 8*time.Hour, TotalDuration(windows))
}
