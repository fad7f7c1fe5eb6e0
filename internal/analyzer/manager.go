package analyzer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"DowSentinel/internal/calculator"
	"DowSentinel/internal/model"
	"DowSentinel/internal/strategy"
	"DowSentinel/internal/table"
)

// Mode tells whether a run recomputed the whole history or resumed a persisted table.
type Mode string

const (
	ModeCold Mode = "cold"
	ModeWarm Mode = "warm"
)

// RegimeChange is a regime transition observed while classifying fresh swings.
type RegimeChange struct {
	OpenTime   time.Time
	Kind       model.SwingKind
	Price      float64
	From       model.Regime
	To         model.Regime
	Conversion float64
	Target     float64
}

// Result summarises one analysis run of a target.
type Result struct {
	Target    model.Target
	FetchedAt time.Time
	Mode      Mode
	Candles   int
	Swings    int
	Retracted int // persisted rows replaced by this run
	Fresh     []model.TrendRecord
	Table     []model.TrendRecord
	Regime    model.Regime
	Changes   []RegimeChange
}

// Last returns the most recent record of the saved table.
func (r *Result) Last() (model.TrendRecord, bool) {
	if len(r.Table) == 0 {
		return model.TrendRecord{}, false
	}
	return r.Table[len(r.Table)-1], true
}

// Manager runs the swing pipeline for targets and keeps one trend table per target.
type Manager struct {
	mu            sync.Mutex
	dir           string
	period        int
	retention     int
	fullRecompute bool
}

// NewManager creates a Manager writing tables under dir.
func NewManager(dir string, period, retention int, fullRecompute bool) *Manager {
	if period <= 0 {
		period = calculator.DefaultPeriod
	}
	if retention <= 0 {
		retention = table.DefaultRetention
	}
	return &Manager{dir: dir, period: period, retention: retention, fullRecompute: fullRecompute}
}

// Path returns the trend table file of a target.
func (m *Manager) Path(category string, target model.Target) string {
	return table.Path(m.dir, category, target)
}

// Analyze detects and consolidates the swings of series, classifies them and saves the table.
// An existing table is resumed from its last regime unless the manager recomputes everything.
func (m *Manager) Analyze(series *model.PriceSeries) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	swings, err := calculator.Swings(series, m.period)
	if err != nil {
		return nil, fmt.Errorf("detect swings: %w", err)
	}

	path := m.Path(series.Category, series.Target)
	var prior []model.TrendRecord
	if !m.fullRecompute {
		if prior, _, err = table.Load(path); err != nil {
			return nil, fmt.Errorf("load trend table: %w", err)
		}
	}

	res := &Result{Target: series.Target, FetchedAt: series.FetchedAt, Candles: len(series.Bars), Swings: len(swings)}
	var (
		history, classified []model.TrendRecord
		regime              model.Regime
	)
	if len(prior) == 0 {
		res.Mode = ModeCold
		regime, classified, err = strategy.ColdStart(swings)
	} else {
		res.Mode = ModeWarm
		first, _, _ := series.Bounds()
		var fresh []model.TrendRecord
		history, fresh, res.Retracted = splitFresh(prior, swings, first)
		regime, classified, err = strategy.Resume(history, fresh)
	}
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", series.Target, err)
	}
	start := strategy.SeedRegime(history)

	merged := table.MergeByTime(history, classified, func(r model.TrendRecord) time.Time { return r.OpenTime })
	if err := table.Save(path, merged, m.retention); err != nil {
		return nil, fmt.Errorf("save trend table: %w", err)
	}

	res.Fresh = classified
	res.Table = table.RetainTail(merged, m.retention)
	res.Regime = regime
	res.Changes = regimeChanges(start, classified)

	log.Printf("[INFO] %s: %s run, %d candles fetched at %s, %d swings, %d retracted, %d new records, regime %s",
		series.Target, res.Mode, res.Candles, res.FetchedAt.UTC().Format(time.DateTime), res.Swings, res.Retracted, len(classified), regime)
	return res, nil
}

// Latest returns the last persisted record of a target.
func (m *Manager) Latest(category string, target model.Target) (model.TrendRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs, _, err := table.Load(m.Path(category, target))
	if err != nil {
		return model.TrendRecord{}, false, err
	}
	if len(recs) == 0 {
		return model.TrendRecord{}, false, nil
	}
	return recs[len(recs)-1], true, nil
}

// splitFresh separates the persisted rows that still agree with the freshly consolidated swings
// from the swings that have to be classified again. Swings near the right edge of a series are
// provisional, so every persisted row after the first disagreement is replaced.
//
// Rows older than the first candle cannot be checked and are kept. When the series starts after
// the table does, the left edge of the series can produce swings the longer history never had,
// so alignment starts at the first persisted row that matches a swing exactly.
func splitFresh(prior, swings []model.TrendRecord, first time.Time) (history, fresh []model.TrendRecord, retracted int) {
	a := 0
	for a < len(prior) && prior[a].OpenTime.Before(first) {
		a++
	}

	byTime := make(map[int64]int, len(swings))
	for j, s := range swings {
		byTime[s.OpenTime.UnixNano()] = j
	}
	for q := a; q < len(prior); q++ {
		p, ok := byTime[prior[q].OpenTime.UnixNano()]
		if ok && sameSwing(prior[q], swings[p]) {
			i := q
			for i < len(prior) && p < len(swings) && sameSwing(prior[i], swings[p]) {
				i++
				p++
			}
			return prior[:i], swings[p:], len(prior) - i
		}
		if a == 0 {
			break
		}
	}

	// Nothing in the series confirms the table: keep the unverifiable rows and continue after them.
	history = prior[:a]
	retracted = len(prior) - a
	if a == 0 {
		return history, swings, retracted
	}
	last := history[a-1]
	for _, s := range swings {
		if s.OpenTime.After(last.OpenTime) {
			fresh = append(fresh, s)
		}
	}
	if len(fresh) == 0 || fresh[0].Kind != last.Kind {
		return history, fresh, retracted
	}
	if calculator.MoreExtreme(fresh[0], last) {
		return history[:a-1], fresh, retracted + 1
	}
	return history, fresh[1:], retracted
}

func sameSwing(a, b model.TrendRecord) bool {
	return a.OpenTime.Equal(b.OpenTime) && a.Kind == b.Kind && a.Extreme() == b.Extreme()
}

func regimeChanges(start model.Regime, records []model.TrendRecord) []RegimeChange {
	var changes []RegimeChange
	prev := start
	for _, r := range records {
		if r.Trend == prev {
			continue
		}
		changes = append(changes, RegimeChange{
			OpenTime:   r.OpenTime,
			Kind:       r.Kind,
			Price:      r.Extreme(),
			From:       prev,
			To:         r.Trend,
			Conversion: r.Conversion,
			Target:     r.Target,
		})
		prev = r.Trend
	}
	return changes
}
