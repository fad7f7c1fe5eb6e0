package calculator

import (
	"errors"

	"DowSentinel/internal/model"
)

// DefaultPeriod is the number of neighbours compared on each side of a candidate bar.
const DefaultPeriod = 5

// DetectSwings flags every bar that is not exceeded by its neighbours within period bars on
// either side. A bar whose high survives both windows is a swing high; otherwise a bar whose
// low survives both windows is a swing low. A bar qualifying as both is reported only as a high.
// Near the ends of the series only the available window is consulted.
func DetectSwings(bars []model.OHLCV, period int) ([]model.TrendRecord, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	total := len(bars)
	swings := make([]model.TrendRecord, 0, total/period+1)
	for i, bar := range bars {
		lFrom, lTo := leftWindow(i, period)
		lHigh, lLow, lOK := windowRange(bars, lFrom, lTo)
		rFrom, rTo := rightWindow(i, period, total)
		rHigh, rLow, rOK := windowRange(bars, rFrom, rTo)

		if isSwingHigh(bar.High, lHigh, lOK, rHigh, rOK) {
			swings = append(swings, model.NewSwingHigh(bar.Time, bar.High))
			continue
		}
		if isSwingLow(bar.Low, lLow, lOK, rLow, rOK) {
			swings = append(swings, model.NewSwingLow(bar.Time, bar.Low))
		}
	}
	return swings, nil
}

func isSwingHigh(high, left float64, leftOK bool, right float64, rightOK bool) bool {
	if leftOK && high < left {
		return false
	}
	if rightOK && high < right {
		return false
	}
	return true
}

func isSwingLow(low, left float64, leftOK bool, right float64, rightOK bool) bool {
	if leftOK && low > left {
		return false
	}
	if rightOK && low > right {
		return false
	}
	return true
}
