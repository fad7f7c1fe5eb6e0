package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownKind is returned when a swing record is neither a high nor a low.
var ErrUnknownKind = errors.New("swing kind is neither High nor Low")

// SwingKind classifies a swing point. The zero value is invalid.
type SwingKind int

const (
	SwingHigh SwingKind = iota + 1
	SwingLow
)

func (k SwingKind) String() string {
	switch k {
	case SwingHigh:
		return "High"
	case SwingLow:
		return "Low"
	default:
		return fmt.Sprintf("SwingKind(%d)", int(k))
	}
}

// Valid reports whether k is High or Low.
func (k SwingKind) Valid() bool { return k == SwingHigh || k == SwingLow }

// ParseSwingKind parses the persisted representation of a kind.
func ParseSwingKind(s string) (SwingKind, error) {
	switch s {
	case "High":
		return SwingHigh, nil
	case "Low":
		return SwingLow, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Regime is the directional classification carried between swings.
type Regime int

const (
	Undetermined Regime = iota
	Up
	Down
)

func (r Regime) String() string {
	switch r {
	case Up:
		return "Up"
	case Down:
		return "Down"
	default:
		return "Undetermined"
	}
}

// Established reports whether r is Up or Down.
func (r Regime) Established() bool { return r == Up || r == Down }

// ParseRegime parses the persisted trend column. An empty cell is Undetermined.
func ParseRegime(s string) (Regime, error) {
	switch s {
	case "", "Undetermined":
		return Undetermined, nil
	case "Up":
		return Up, nil
	case "Down":
		return Down, nil
	default:
		return Undetermined, fmt.Errorf("unknown trend %q", s)
	}
}

// TrendRecord is one alternating swing together with the regime assigned after it.
// Conversion and Target are meaningful only while Trend is established, so the three
// trend fields are always either all empty or all populated.
type TrendRecord struct {
	OpenTime   time.Time
	Kind       SwingKind
	High       float64 // set when Kind is SwingHigh
	Low        float64 // set when Kind is SwingLow
	Trend      Regime
	Conversion float64
	Target     float64
}

// NewSwingHigh builds an unclassified high record.
func NewSwingHigh(t time.Time, high float64) TrendRecord {
	return TrendRecord{OpenTime: t, Kind: SwingHigh, High: high}
}

// NewSwingLow builds an unclassified low record.
func NewSwingLow(t time.Time, low float64) TrendRecord {
	return TrendRecord{OpenTime: t, Kind: SwingLow, Low: low}
}

// Extreme returns the price the swing is defined by: its high for a High, its low for a Low.
func (r TrendRecord) Extreme() float64 {
	if r.Kind == SwingHigh {
		return r.High
	}
	return r.Low
}

// Classified reports whether the trend fields are populated.
func (r TrendRecord) Classified() bool { return r.Trend.Established() }

// WithTrend returns r carrying the given regime and outputs. An undetermined regime clears the outputs.
func (r TrendRecord) WithTrend(regime Regime, conversion, target float64) TrendRecord {
	r.Trend = regime
	if !regime.Established() {
		r.Conversion, r.Target = 0, 0
		return r
	}
	r.Conversion, r.Target = conversion, target
	return r
}

// Unclassified returns r with the trend fields cleared.
func (r TrendRecord) Unclassified() TrendRecord {
	return r.WithTrend(Undetermined, 0, 0)
}
