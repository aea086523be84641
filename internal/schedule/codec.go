package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// FormatError reports input whose record shape cannot be recognized.
type FormatError struct {
	Index  int // record position, -1 for the whole payload
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := e.Reason
	if e.Index >= 0 {
		msg = fmt.Sprintf("record[%d]: %s", e.Index, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

type wireRecord struct {
	Day       *int            `json:"dayOfWeek"`
	StartTime *string         `json:"startTime"`
	EndTime   *string         `json:"endTime"`
	Intervals *[]wireInterval `json:"intervals"`
}

type wireInterval struct {
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
}

type wireException struct {
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	Reason            string `json:"reason"`
	IsRecurring       bool   `json:"isRecurring"`
	RecurrencePattern string `json:"recurrencePattern"`
}

// DecodeRules decodes a JSON array of availability records in either shape.
// Flat rows carry startTime/endTime, grouped rows carry intervals; a payload
// mixing both, or a row with neither, is a *FormatError. A missing
// dayOfWeek decodes to DayUnset and a missing or malformed time to
// InvalidClock; both are kept for the validator to report.
func DecodeRules(data []byte) (Shape, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return FlatRecords{}, nil
	}

	var rows []wireRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &FormatError{Index: -1, Reason: "decode availability records", Err: err}
	}

	var flat FlatRecords
	var grouped GroupedRules
	for i, row := range rows {
		day := DayUnset
		if row.Day != nil {
			day = time.Weekday(*row.Day)
		}

		hasTimes := row.StartTime != nil || row.EndTime != nil
		switch {
		case hasTimes && row.Intervals != nil:
			return nil, &FormatError{Index: i, Reason: "record has both startTime/endTime and intervals"}
		case hasTimes:
			if grouped != nil {
				return nil, &FormatError{Index: i, Reason: "flat record in grouped payload"}
			}
			flat = append(flat, SlotRecord{Day: day, Start: parseWireClock(row.StartTime), End: parseWireClock(row.EndTime)})
		case row.Intervals != nil:
			if flat != nil {
				return nil, &FormatError{Index: i, Reason: "grouped record in flat payload"}
			}
			rule := WeeklyRule{Day: day, Intervals: make([]TimeInterval, 0, len(*row.Intervals))}
			for _, w := range *row.Intervals {
				rule.Intervals = append(rule.Intervals, TimeInterval{
					Start: parseWireClock(w.StartTime),
					End:   parseWireClock(w.EndTime),
				})
			}
			if grouped == nil {
				grouped = GroupedRules{}
			}
			grouped = append(grouped, rule)
		default:
			return nil, &FormatError{Index: i, Reason: "unrecognized record shape"}
		}
	}

	if grouped != nil {
		return grouped, nil
	}
	if flat == nil {
		flat = FlatRecords{}
	}
	return flat, nil
}

// EncodeRules encodes the storage shape.
func EncodeRules(records FlatRecords) ([]byte, error) {
	if records == nil {
		records = FlatRecords{}
	}
	return json.Marshal(records)
}

// EncodeEditable encodes the grouped shape.
func EncodeEditable(rules GroupedRules) ([]byte, error) {
	if rules == nil {
		rules = GroupedRules{}
	}
	return json.Marshal(rules)
}

// DecodeExceptions decodes the exception wire shape.
func DecodeExceptions(data []byte) ([]ExceptionPeriod, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []ExceptionPeriod{}, nil
	}

	var rows []wireException
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &FormatError{Index: -1, Reason: "decode exception periods", Err: err}
	}

	out := make([]ExceptionPeriod, 0, len(rows))
	for i, row := range rows {
		start, err := civil.ParseDate(row.StartDate)
		if err != nil {
			return nil, &FormatError{Index: i, Reason: "invalid startDate, expected YYYY-MM-DD", Err: err}
		}
		end, err := civil.ParseDate(row.EndDate)
		if err != nil {
			return nil, &FormatError{Index: i, Reason: "invalid endDate, expected YYYY-MM-DD", Err: err}
		}
		out = append(out, ExceptionPeriod{
			Start:             start,
			End:               end,
			Reason:            row.Reason,
			RecurringAnnually: row.IsRecurring,
			RecurrencePattern: row.RecurrencePattern,
		})
	}
	return out, nil
}

// EncodeExceptions encodes periods in the wire shape.
func EncodeExceptions(periods []ExceptionPeriod) ([]byte, error) {
	if periods == nil {
		periods = []ExceptionPeriod{}
	}
	return json.Marshal(periods)
}
