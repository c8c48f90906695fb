package pipeline

import "time"

// WindowResult is the newest trailing-window statistic for one station,
// parameter and metric. Defined is false when the series does not yet span
// a full window; Value may still be NaN on a covered window holding invalid
// data (e.g. a negative concentration under a geometric mean).
type WindowResult struct {
	StationID   string
	Parameter   string
	Metric      string
	WindowStart time.Time
	WindowEnd   time.Time
	Count       int
	Value       float64
	Defined     bool
}
