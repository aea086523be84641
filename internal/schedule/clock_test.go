package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "09:00", want: NewClock(9, 0)},
		{in: "9:05", want: NewClock(9, 5)},
		{in: " 17:30 ", want: NewClock(17, 30)},
		{in: "00:00", want: Midnight},
		{in: "24:00", want: EndOfDay},
		{in: "24:01", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClock_String(t *testing.T) {
	assert.Equal(t, "09:05", NewClock(9, 5).String())
	assert.Equal(t, "24:00", EndOfDay.String())
	assert.Equal(t, "-00:30", Clock(-30).String())
	assert.Equal(t, "--:--", InvalidClock.String())
}

func TestClock_On(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	d := date(2025, time.March, 3)
	got := NewClock(9, 30).On(d, loc)
	assert.Equal(t, time.Date(2025, time.March, 3, 9, 30, 0, 0, loc), got)

	end := EndOfDay.On(d, loc)
	assert.Equal(t, time.Date(2025, time.March, 4, 0, 0, 0, 0, loc), end)
}

func TestClock_On_SpringForwardGap(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2026-03-08 02:00 EST jumps to 03:00 EDT.
	d := date(2026, time.March, 8)
	jump := time.Date(2026, time.March, 8, 7, 0, 0, 0, time.UTC)

	assert.True(t, NewClock(2, 30).On(d, ny).Equal(jump))
	assert.True(t, NewClock(2, 0).On(d, ny).Equal(jump))
	assert.True(t, NewClock(1, 59).On(d, ny).Equal(jump.Add(-time.Minute)))
	assert.True(t, NewClock(3, 0).On(d, ny).Equal(jump))
	assert.Equal(t, 4, NewClock(4, 0).On(d, ny).Hour())
}

func TestConfig_LocationAndBuffer(t *testing.T) {
	loc, err := Config{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = Config{TimeZone: "Nowhere/Else"}.Location()
	assert.Error(t, err)

	assert.Equal(t, 15*time.Minute, Config{BufferMinutes: 15}.Buffer())
	assert.Equal(t, time.Duration(0), Config{BufferMinutes: -3}.Buffer())
}
