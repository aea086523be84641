package schedule

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRules_OverlappingMondayIntervals(t *testing.T) {
	rules := GroupedRules{
		{Day: time.Monday, Intervals: []TimeInterval{iv("09:00", "11:00"), iv("10:00", "12:00")}},
	}
	snapshot := rules.Clone()

	errs := ValidateRules(rules)

	require.Len(t, errs, 1)
	assert.Equal(t, time.Monday, errs[0].Day)
	assert.Equal(t, 0, errs[0].Slot)
	assert.Equal(t, 1, errs[0].OtherSlot)
	assert.Contains(t, errs[0].Message, "Monday")
	assert.Contains(t, errs[0].Message, "slot 0")
	assert.Contains(t, errs[0].Message, "slot 1")
	assert.Equal(t, snapshot, rules)
}

func TestValidateRules_CollectsEverything(t *testing.T) {
	rules := GroupedRules{
		{Day: time.Monday, Intervals: []TimeInterval{iv("12:00", "09:00"), iv("13:00", "14:00")}},
		{Day: time.Monday, Intervals: []TimeInterval{iv("15:00", "16:00")}},
		{Day: 9, Intervals: []TimeInterval{iv("09:00", "10:00")}},
		{Day: time.Friday, Intervals: []TimeInterval{{Start: NewClock(9, 0), End: NewClock(25, 0)}}},
	}

	errs := ValidateRules(rules)

	require.Len(t, errs, 4)
	assert.Equal(t, "rules[0].intervals[0]", errs[0].Field)
	assert.Contains(t, errs[0].Message, "must be before end time")
	assert.Equal(t, "rules[1]", errs[1].Field)
	assert.Contains(t, errs[1].Message, "already has a rule at rules[0]")
	assert.Equal(t, "rules[2].dayOfWeek", errs[2].Field)
	assert.Equal(t, "rules[3].intervals[0]", errs[3].Field)
	assert.Contains(t, errs[3].Message, "outside 00:00-24:00")
}

func TestValidateRules_TouchingIntervalsAreFine(t *testing.T) {
	rules := GroupedRules{
		{Day: time.Tuesday, Intervals: []TimeInterval{iv("09:00", "12:00"), iv("12:00", "17:00")}},
		{Day: time.Sunday},
	}
	assert.Empty(t, ValidateRules(rules))
}

func TestValidateRules_EveryOverlappingPair(t *testing.T) {
	rules := GroupedRules{
		{Day: time.Wednesday, Intervals: []TimeInterval{iv("09:00", "17:00"), iv("10:00", "11:00"), iv("12:00", "13:00")}},
	}

	errs := ValidateRules(rules)

	require.Len(t, errs, 2)
	assert.Equal(t, [2]int{0, 1}, [2]int{errs[0].Slot, errs[0].OtherSlot})
	assert.Equal(t, [2]int{0, 2}, [2]int{errs[1].Slot, errs[1].OtherSlot})
}

func TestValidateExceptions(t *testing.T) {
	aug := func(day int) civil.Date { return civil.Date{Year: 2025, Month: time.August, Day: day} }

	periods := []ExceptionPeriod{
		{Start: aug(1), End: aug(7)},
		{Start: aug(5), End: aug(10)},
		{Start: aug(9), End: aug(3)},
		{Start: aug(1), End: aug(1), RecurringAnnually: true, RecurrencePattern: "weekly"},
		{End: aug(1)},
	}

	errs := ValidateExceptions(periods)

	require.Len(t, errs, 3)
	assert.Equal(t, "exceptions[2].endDate", errs[0].Field)
	assert.Equal(t, 2, errs[0].Index)
	assert.Equal(t, "exceptions[3].recurrencePattern", errs[1].Field)
	assert.Equal(t, "exceptions[4].startDate", errs[2].Field)
}

func TestValidateConfig(t *testing.T) {
	assert.Empty(t, ValidateConfig(Config{TimeZone: "Europe/Moscow", BufferMinutes: 15}))
	assert.Empty(t, ValidateConfig(Config{}))

	errs := ValidateConfig(Config{TimeZone: "Mars/Olympus", BufferMinutes: -5})
	require.Len(t, errs, 2)
	assert.Equal(t, "config.bufferMinutes", errs[0].Field)
	assert.Equal(t, "config.timeZone", errs[1].Field)
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "rules[0]", Message: "a"},
		{Field: "rules[1]", Message: "b"},
	}
	assert.Equal(t, "rules[0]: a; rules[1]: b", errs.Error())
}
