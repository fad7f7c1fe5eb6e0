package strategy

import "DowSentinel/internal/model"

// validateTrend looks for a fresh regime while none is established.
// After a low: ascending lows and a new high confirm an uptrend, converting at that low.
// After a high: descending highs and a new low confirm a downtrend, converting at that high.
func validateTrend(price float64, latest, second, third model.TrendRecord) (model.Regime, float64, float64) {
	if latest.Kind == model.SwingLow {
		lowUp := third.Low < latest.Low
		highUp := second.High < price
		if lowUp && highUp {
			return model.Up, latest.Low, price
		}
		return model.Undetermined, 0, 0
	}

	lowDown := second.Low > price
	highDown := third.High > latest.High
	if lowDown && highDown {
		return model.Down, latest.High, price
	}
	return model.Undetermined, 0, 0
}

// validateUpTrend carries an uptrend forward. A low under the conversion value breaks it;
// a high at or above the target raises the conversion value to the preceding low.
func validateUpTrend(price float64, latest model.TrendRecord) (model.Regime, float64, float64, error) {
	if !latest.Classified() {
		return model.Undetermined, 0, 0, ErrIncompleteRecord
	}
	conversion, target := latest.Conversion, latest.Target

	if latest.Kind == model.SwingHigh {
		if price < conversion {
			return model.Undetermined, 0, 0, nil
		}
		return model.Up, conversion, target, nil
	}

	if price >= target {
		return model.Up, latest.Low, price, nil
	}
	return model.Up, conversion, target, nil
}

// validateDownTrend carries a downtrend forward. A low under the target lowers the conversion
// value to the preceding high; a high at or above the conversion value breaks it.
func validateDownTrend(price float64, latest model.TrendRecord) (model.Regime, float64, float64, error) {
	if !latest.Classified() {
		return model.Undetermined, 0, 0, ErrIncompleteRecord
	}
	conversion, target := latest.Conversion, latest.Target

	if latest.Kind == model.SwingHigh {
		if price < target {
			return model.Down, latest.High, price, nil
		}
		return model.Down, conversion, target, nil
	}

	if conversion > price {
		return model.Down, price, latest.Low, nil
	}
	return model.Undetermined, 0, 0, nil
}
