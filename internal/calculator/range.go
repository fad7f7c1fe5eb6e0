package calculator

import (
	"math"

	"DowSentinel/internal/model"
)

// windowRange scans bars[from:to] and returns its highest high and lowest low.
// An empty window returns ok=false and carries no evidence for either side.
func windowRange(bars []model.OHLCV, from, to int) (high, low float64, ok bool) {
	if from < 0 {
		from = 0
	}
	if to > len(bars) {
		to = len(bars)
	}
	if from >= to {
		return 0, 0, false
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := from; i < to; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, true
}

// leftWindow returns the half-open index range of the period bars before i,
// or an empty range when fewer than period bars precede it.
func leftWindow(i, period int) (from, to int) {
	if i < period {
		return i, i
	}
	return i - period, i
}

// rightWindow returns the index range of up to period bars after i. It is empty
// when i+period runs past the end of the series, and clipped to the last bar otherwise.
func rightWindow(i, period, total int) (from, to int) {
	if i+period > total {
		return i + 1, i + 1
	}
	to = i + 1 + period
	if to > total {
		to = total
	}
	return i + 1, to
}
