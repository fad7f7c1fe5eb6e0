package calculator

import (
	"fmt"
	"time"

	"DowSentinel/internal/model"
)

// Consolidate collapses runs of same-kind swings so highs and lows strictly alternate.
// Within a run only the most extreme swing survives: the higher high, or the lower low.
// On a tie the earlier swing is kept. Swings outside [first, last] are dropped afterwards.
func Consolidate(swings []model.TrendRecord, first, last time.Time) ([]model.TrendRecord, error) {
	out := make([]model.TrendRecord, 0, len(swings))
	for _, s := range swings {
		if !s.Kind.Valid() {
			return nil, fmt.Errorf("consolidate swing at %s: %w", s.OpenTime.Format(time.DateTime), model.ErrUnknownKind)
		}
		n := len(out)
		if n == 0 || out[n-1].Kind != s.Kind {
			out = append(out, s.Unclassified())
			continue
		}
		if MoreExtreme(s, out[n-1]) {
			out[n-1] = s.Unclassified()
		}
	}

	bounded := out[:0]
	for _, s := range out {
		if s.OpenTime.Before(first) || s.OpenTime.After(last) {
			continue
		}
		bounded = append(bounded, s)
	}
	return bounded, nil
}

// MoreExtreme reports whether a strictly dominates b, both being of the same kind.
func MoreExtreme(a, b model.TrendRecord) bool {
	if a.Kind == model.SwingHigh {
		return a.High > b.High
	}
	return a.Low < b.Low
}

// Swings runs detection and consolidation over a whole series.
func Swings(series *model.PriceSeries, period int) ([]model.TrendRecord, error) {
	first, last, ok := series.Bounds()
	if !ok {
		return nil, nil
	}
	raw, err := DetectSwings(series.Bars, period)
	if err != nil {
		return nil, err
	}
	return Consolidate(raw, first, last)
}
