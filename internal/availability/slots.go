package availability

import (
	"fmt"
	"time"
)

// Slot is an appointment-length piece of a bookable window.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotInfo is a simplified representation for UI.
type SlotInfo struct {
	Date  string `json:"date"`  // "2026-01-15"
	Start string `json:"start"` // "10:00"
	End   string `json:"end"`   // "10:30"
}

// SplitWindows carves each window into slots of length duration, advancing by
// step (duration when step is zero). Slots starting before now are left out;
// pass the zero time to keep them all.
func SplitWindows(windows []BookableWindow, duration, step time.Duration, now time.Time) []Slot {
	slots := make([]Slot, 0)
	if duration <= 0 {
		return slots
	}
	if step <= 0 {
		step = duration
	}

	for _, w := range windows {
		for cursor := w.Start; !cursor.Add(duration).After(w.End); cursor = cursor.Add(step) {
			if !now.IsZero() && cursor.Before(now) {
				continue
			}
			slots = append(slots, Slot{Start: cursor, End: cursor.Add(duration)})
		}
	}
	return slots
}

// ToSlotInfo converts slots for UI.
func ToSlotInfo(slots []Slot) []SlotInfo {
	result := make([]SlotInfo, len(slots))
	for i, s := range slots {
		result[i] = SlotInfo{
			Date:  s.Start.Format("2006-01-02"),
			Start: s.Start.Format("15:04"),
			End:   s.End.Format("15:04"),
		}
	}
	return result
}

// TotalDuration sums window lengths.
func TotalDuration(windows []BookableWindow) time.Duration {
	var total time.Duration
	for _, w := range windows {
		total += w.Duration()
	}
	return total
}

// FormatDuration formats minutes as "45m", "2h" or "1h 30m".
func FormatDuration(d time.Duration) string {
	minutes := int(d / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}
