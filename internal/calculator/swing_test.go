package calculator

import (
	"errors"
	"testing"
	"time"

	"DowSentinel/internal/model"
)

var t0 = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func makeBars(highs, lows []float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(highs))
	for i := range highs {
		bars[i] = model.OHLCV{
			Time:  t0.Add(time.Duration(i) * time.Hour),
			Open:  lows[i],
			High:  highs[i],
			Low:   lows[i],
			Close: highs[i],
		}
	}
	return bars
}

func TestDetectSwings_PeakInWindow(t *testing.T) {
	bars := makeBars(
		[]float64{1, 2, 5, 3, 2},
		[]float64{0.5, 1.5, 4, 2.5, 1.5},
	)
	swings, err := DetectSwings(bars, 2)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var highs []time.Time
	for _, s := range swings {
		if s.Kind == model.SwingHigh {
			highs = append(highs, s.OpenTime)
		}
	}
	if len(highs) != 1 {
		t.Fatalf("expected exactly 1 swing high, got %d", len(highs))
	}
	if !highs[0].Equal(bars[2].Time) {
		t.Errorf("expected swing high at bar 2, got %s", highs[0])
	}
}

func TestDetectSwings_HighWinsOverLow(t *testing.T) {
	// A single bar has no neighbours at all, so it qualifies both ways.
	bars := makeBars([]float64{10}, []float64{9})
	swings, err := DetectSwings(bars, 5)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(swings) != 1 || swings[0].Kind != model.SwingHigh {
		t.Fatalf("expected one swing high, got %+v", swings)
	}
}

func TestDetectSwings_TiesCount(t *testing.T) {
	bars := makeBars(
		[]float64{5, 5, 5, 5, 5},
		[]float64{1, 1, 1, 1, 1},
	)
	swings, err := DetectSwings(bars, 1)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(swings) != len(bars) {
		t.Fatalf("expected every flat bar to be a swing, got %d", len(swings))
	}
	for i, s := range swings {
		if s.Kind != model.SwingHigh {
			t.Errorf("bar %d: expected High, got %s", i, s.Kind)
		}
	}
}

func TestDetectSwings_Low(t *testing.T) {
	bars := makeBars(
		[]float64{10, 9, 8, 9, 10, 11, 12},
		[]float64{9, 8, 6, 8, 9, 10, 11},
	)
	swings, err := DetectSwings(bars, 2)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var found bool
	for _, s := range swings {
		if s.Kind == model.SwingLow && s.OpenTime.Equal(bars[2].Time) {
			found = true
			if s.Low != 6 {
				t.Errorf("expected low 6, got %.1f", s.Low)
			}
		}
	}
	if !found {
		t.Fatalf("expected swing low at bar 2, got %+v", swings)
	}
}

func TestDetectSwings_RightWindowEdge(t *testing.T) {
	tests := []struct {
		i, period, total int
		from, to         int
	}{
		{0, 2, 5, 1, 3},
		{2, 2, 5, 3, 5},
		{3, 2, 5, 4, 5}, // i+period == total: clipped to the last bar
		{4, 2, 5, 5, 5}, // past the end: empty
		{4, 1, 5, 5, 5},
	}
	for _, tt := range tests {
		from, to := rightWindow(tt.i, tt.period, tt.total)
		if from != tt.from || to != tt.to {
			t.Errorf("rightWindow(%d,%d,%d) = [%d,%d), want [%d,%d)", tt.i, tt.period, tt.total, from, to, tt.from, tt.to)
		}
	}
}

func TestDetectSwings_InvalidPeriod(t *testing.T) {
	if _, err := DetectSwings(nil, 0); err == nil {
		t.Fatal("expected error for zero period")
	}
}

func TestConsolidate_Alternates(t *testing.T) {
	at := func(h int) time.Time { return t0.Add(time.Duration(h) * time.Hour) }
	swings := []model.TrendRecord{
		model.NewSwingHigh(at(0), 10),
		model.NewSwingHigh(at(1), 12),
		model.NewSwingHigh(at(2), 11),
		model.NewSwingLow(at(3), 5),
		model.NewSwingLow(at(4), 4),
		model.NewSwingHigh(at(5), 9),
		model.NewSwingLow(at(6), 6),
		model.NewSwingLow(at(7), 6),
	}
	got, err := Consolidate(swings, at(0), at(7))
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	want := []struct {
		hour  int
		kind  model.SwingKind
		price float64
	}{
		{1, model.SwingHigh, 12},
		{4, model.SwingLow, 4},
		{5, model.SwingHigh, 9},
		{6, model.SwingLow, 6}, // tie keeps the earlier swing
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if !got[i].OpenTime.Equal(at(w.hour)) || got[i].Kind != w.kind || got[i].Extreme() != w.price {
			t.Errorf("record %d: got %s %s %.1f, want hour %d %s %.1f",
				i, got[i].OpenTime, got[i].Kind, got[i].Extreme(), w.hour, w.kind, w.price)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Kind == got[i-1].Kind {
			t.Errorf("records %d and %d share kind %s", i-1, i, got[i].Kind)
		}
	}
}

func TestConsolidate_TimeBounds(t *testing.T) {
	at := func(h int) time.Time { return t0.Add(time.Duration(h) * time.Hour) }
	swings := []model.TrendRecord{
		model.NewSwingLow(at(-1), 1),
		model.NewSwingHigh(at(1), 10),
		model.NewSwingLow(at(2), 5),
		model.NewSwingHigh(at(9), 12),
	}
	got, err := Consolidate(swings, at(0), at(5))
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 in-bounds records, got %d", len(got))
	}
}

func TestConsolidate_UnknownKind(t *testing.T) {
	swings := []model.TrendRecord{{OpenTime: t0, High: 1}}
	_, err := Consolidate(swings, t0, t0)
	if !errors.Is(err, model.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestSwings_AlternationOverSeries(t *testing.T) {
	highs := []float64{3, 5, 4, 6, 8, 7, 6, 9, 11, 10, 8, 7, 9, 12, 14, 13, 11, 10, 12, 15}
	lows := make([]float64, len(highs))
	for i, h := range highs {
		lows[i] = h - 2
	}
	series := &model.PriceSeries{Bars: makeBars(highs, lows)}
	for period := 1; period <= 5; period++ {
		got, err := Swings(series, period)
		if err != nil {
			t.Fatalf("period %d: %v", period, err)
		}
		for i := 1; i < len(got); i++ {
			if got[i].Kind == got[i-1].Kind {
				t.Errorf("period %d: records %d and %d share kind %s", period, i-1, i, got[i].Kind)
			}
		}
		for _, r := range got {
			if r.Classified() {
				t.Errorf("period %d: consolidated record carries trend fields: %+v", period, r)
			}
		}
	}
}

func TestSwings_EmptySeries(t *testing.T) {
	got, err := Swings(&model.PriceSeries{}, DefaultPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no swings, got %d", len(got))
	}
}
