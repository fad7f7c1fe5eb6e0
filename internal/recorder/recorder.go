package recorder

import "time"

// RunEvent holds the summary of one analysis run of a target.
type RunEvent struct {
	ID         string
	Symbol     string
	Interval   string
	Mode       string // "cold" or "warm"
	FetchedAt  time.Time
	Candles    int
	Swings     int
	NewRecords int
	Regime     string
	Conversion float64
	Target     float64
}

// RegimeChangeEvent records a regime transition found during a run.
type RegimeChangeEvent struct {
	RunID      string
	Symbol     string
	Interval   string
	OpenTime   time.Time
	From       string
	To         string
	Price      float64
	Conversion float64
	Target     float64
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	RecordRegimeChange(evt *RegimeChangeEvent) error
	Close() error
}
