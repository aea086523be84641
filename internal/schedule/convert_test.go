package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iv(start, end string) TimeInterval {
	return TimeInterval{Start: MustParseClock(start), End: MustParseClock(end)}
}

func rec(day time.Weekday, start, end string) SlotRecord {
	return SlotRecord{Day: day, Start: MustParseClock(start), End: MustParseClock(end)}
}

// asSet flattens rules into a set of day+interval keys for order-insensitive comparison.
func asSet(rules GroupedRules) map[string]int {
	set := make(map[string]int)
	for _, r := range rules {
		for _, i := range r.Intervals {
			set[DayName(r.Day)+" "+i.String()]++
		}
	}
	return set
}

func TestToEditable_GroupsAndOrders(t *testing.T) {
	flat := FlatRecords{
		rec(time.Sunday, "10:00", "12:00"),
		rec(time.Monday, "13:00", "17:00"),
		rec(time.Wednesday, "09:00", "11:00"),
		rec(time.Monday, "09:00", "12:00"),
	}

	got := ToEditable(flat)

	require.Len(t, got, 3)
	assert.Equal(t, time.Monday, got[0].Day)
	assert.Equal(t, time.Wednesday, got[1].Day)
	assert.Equal(t, time.Sunday, got[2].Day)
	assert.Equal(t, []TimeInterval{iv("09:00", "12:00"), iv("13:00", "17:00")}, got[0].Intervals)
}

func TestToEditable_KeepsInvalidRecords(t *testing.T) {
	flat := FlatRecords{
		rec(time.Tuesday, "12:00", "09:00"),
		{Day: DayUnset, Start: MustParseClock("08:00"), End: MustParseClock("09:00")},
	}

	got := ToEditable(flat)

	require.Len(t, got, 2)
	assert.Equal(t, time.Tuesday, got[0].Day)
	assert.Equal(t, iv("12:00", "09:00"), got[0].Intervals[0])
	assert.Equal(t, DayUnset, got[1].Day)
}

func TestToEditable_GroupedReturnedUnchanged(t *testing.T) {
	grouped := GroupedRules{
		{Day: time.Friday, Intervals: []TimeInterval{iv("14:00", "15:00"), iv("09:00", "10:00")}},
		{Day: time.Monday, Intervals: []TimeInterval{iv("09:00", "10:00")}},
	}

	got := ToEditable(grouped)
	assert.Equal(t, grouped, got)
}

func TestToEditable_Idempotent(t *testing.T) {
	flat := FlatRecords{
		rec(time.Saturday, "10:00", "14:00"),
		rec(time.Monday, "09:00", "12:00"),
		rec(time.Monday, "08:00", "08:30"),
	}
	grouped := GroupedRules{
		{Day: time.Thursday, Intervals: []TimeInterval{iv("09:00", "10:00")}},
	}

	for name, input := range map[string]Shape{"flat": flat, "grouped": grouped} {
		t.Run(name, func(t *testing.T) {
			once := ToEditable(input)
			assert.Equal(t, once, ToEditable(once))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []GroupedRules{
		{},
		{{Day: time.Monday, Intervals: []TimeInterval{iv("09:00", "17:00")}}},
		{
			{Day: time.Sunday, Intervals: []TimeInterval{iv("10:00", "12:00")}},
			{Day: time.Monday, Intervals: []TimeInterval{iv("13:00", "17:00"), iv("09:00", "12:00")}},
			{Day: time.Saturday, Intervals: []TimeInterval{iv("00:00", "24:00")}},
		},
	}

	for _, g := range cases {
		back := ToEditable(ToStorage(g))
		assert.Equal(t, asSet(g), asSet(back))
	}
}

func TestToStorage_OneRecordPerInterval(t *testing.T) {
	g := GroupedRules{
		{Day: time.Monday, Intervals: []TimeInterval{iv("09:00", "12:00"), iv("13:00", "17:00")}},
		{Day: time.Tuesday},
	}

	flat := ToStorage(g)

	assert.Equal(t, FlatRecords{
		rec(time.Monday, "09:00", "12:00"),
		rec(time.Monday, "13:00", "17:00"),
	}, flat)
}

func TestFlatten(t *testing.T) {
	flat := FlatRecords{rec(time.Monday, "09:00", "10:00")}
	assert.Equal(t, flat, Flatten(flat))
	assert.Equal(t, flat, Flatten(GroupedRules{{Day: time.Monday, Intervals: []TimeInterval{iv("09:00", "10:00")}}}))
	assert.Empty(t, Flatten(nil))
}

func TestGroupedRules_PureEdits(t *testing.T) {
	base := GroupedRules{{Day: time.Monday, Intervals: []TimeInterval{iv("09:00", "12:00")}}}

	added := base.WithInterval(time.Monday, iv("13:00", "17:00"))
	assert.Len(t, added[0].Intervals, 2)
	assert.Len(t, base[0].Intervals, 1, "original must not change")

	withTuesday := base.WithInterval(time.Tuesday, iv("10:00", "11:00"))
	require.Len(t, withTuesday, 2)
	assert.Equal(t, time.Tuesday, withTuesday[1].Day)

	removed := added.WithoutInterval(time.Monday, 0)
	assert.Equal(t, []TimeInterval{iv("13:00", "17:00")}, removed[0].Intervals)
	assert.Len(t, added[0].Intervals, 2)

	assert.Equal(t, added, added.WithoutInterval(time.Monday, 5))

	cleared := added.WithDay(time.Monday, nil)
	assert.Empty(t, cleared)

	replaced := base.WithDay(time.Monday, []TimeInterval{iv("07:00", "08:00")})
	assert.Equal(t, iv("07:00", "08:00"), replaced[0].Intervals[0])
	assert.Equal(t, iv("09:00", "12:00"), base[0].Intervals[0])

	rule, ok := replaced.Rule(time.Monday)
	assert.True(t, ok)
	assert.Len(t, rule.Intervals, 1)
	_, ok = replaced.Rule(time.Friday)
	assert.False(t, ok)
}
