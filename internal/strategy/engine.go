package strategy

import (
	"errors"
	"fmt"
	"time"

	"DowSentinel/internal/model"
)

// WarmUp is the number of preceding swings required before a swing can be classified.
const WarmUp = 3

var (
	// ErrBrokenAlternation is returned when two adjacent swings share a kind.
	ErrBrokenAlternation = errors.New("adjacent swings share a kind")
	// ErrIncompleteRecord is returned when an established regime follows a record without outputs.
	ErrIncompleteRecord = errors.New("established regime without conversion and target values")
)

// Step classifies current given the regime carried over from the previous swing and every
// swing before it, and returns the updated regime together with the classified record.
// With fewer than WarmUp prior swings the record is returned unclassified and the regime unchanged.
func Step(regime model.Regime, history []model.TrendRecord, current model.TrendRecord) (model.Regime, model.TrendRecord, error) {
	if !current.Kind.Valid() {
		return regime, current, fmt.Errorf("swing at %s: %w", current.OpenTime.Format(time.DateTime), model.ErrUnknownKind)
	}
	count := len(history)
	if count < WarmUp {
		return regime, current.Unclassified(), nil
	}

	latest := history[count-1]
	if !latest.Kind.Valid() {
		return regime, current, fmt.Errorf("swing at %s: %w", latest.OpenTime.Format(time.DateTime), model.ErrUnknownKind)
	}
	if latest.Kind == current.Kind {
		return regime, current, fmt.Errorf("%s and %s: %w",
			latest.OpenTime.Format(time.DateTime), current.OpenTime.Format(time.DateTime), ErrBrokenAlternation)
	}

	var (
		next               model.Regime
		conversion, target float64
		err                error
	)
	switch regime {
	case model.Up:
		next, conversion, target, err = validateUpTrend(current.Extreme(), latest)
	case model.Down:
		next, conversion, target, err = validateDownTrend(current.Extreme(), latest)
	default:
		next, conversion, target = validateTrend(current.Extreme(), latest, history[count-2], history[count-3])
	}
	if err != nil {
		return regime, current, fmt.Errorf("swing at %s: %w", current.OpenTime.Format(time.DateTime), err)
	}
	return next, current.WithTrend(next, conversion, target), nil
}

// Classify folds Step over fresh, starting from regime and treating history as the
// already classified swings that precede fresh. It returns the final regime and the
// classified copies of fresh in order.
func Classify(regime model.Regime, history, fresh []model.TrendRecord) (model.Regime, []model.TrendRecord, error) {
	window := make([]model.TrendRecord, 0, len(history)+len(fresh))
	window = append(window, history...)
	out := make([]model.TrendRecord, 0, len(fresh))
	for _, rec := range fresh {
		var (
			classified model.TrendRecord
			err        error
		)
		regime, classified, err = Step(regime, window, rec)
		if err != nil {
			return regime, nil, err
		}
		window = append(window, classified)
		out = append(out, classified)
	}
	return regime, out, nil
}

// ColdStart classifies a full swing sequence from an undetermined regime.
func ColdStart(swings []model.TrendRecord) (model.Regime, []model.TrendRecord, error) {
	return Classify(model.Undetermined, nil, swings)
}

// Resume seeds the regime from the last classified record of history and classifies fresh.
func Resume(history, fresh []model.TrendRecord) (model.Regime, []model.TrendRecord, error) {
	return Classify(SeedRegime(history), history, fresh)
}

// SeedRegime returns the regime carried by the last record of history, or Undetermined.
func SeedRegime(history []model.TrendRecord) model.Regime {
	if n := len(history); n > 0 {
		return history[n-1].Trend
	}
	return model.Undetermined
}
