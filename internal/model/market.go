package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Turnover float64
}

// Target identifies one analysed market: a symbol on a category at a candle interval.
type Target struct {
	Symbol   string `yaml:"symbol"`
	Interval string `yaml:"interval"`
}

func (t Target) String() string { return t.Symbol + "@" + t.Interval }

// PriceSeries holds an ascending candle series for one target.
type PriceSeries struct {
	Target    Target
	Category  string
	Bars      []OHLCV
	FetchedAt time.Time
}

// Bounds returns the open times of the first and last bar.
func (s *PriceSeries) Bounds() (first, last time.Time, ok bool) {
	if len(s.Bars) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.Bars[0].Time, s.Bars[len(s.Bars)-1].Time, true
}
