package model

import "time"

// Timeframe is a selectable historical snapshot, identified by the number
// of months before the latest sample ("0" is the live state).
type Timeframe struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DateRange is an inclusive [Start, End] window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// MonthsBefore subtracts n calendar months from t. The day is clamped to
// the last day of the target month, so Mar 31 minus one month is Feb 28/29.
func MonthsBefore(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
