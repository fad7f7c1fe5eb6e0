package collector

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"DowSentinel/internal/model"
	"DowSentinel/internal/table"
)

var candleHeader = []string{"open_time", "open", "high", "low", "close", "volume", "turnover"}

// Cache keeps a bounded CSV of candles per target: <Dir>/<SYMBOL>-<category>/<interval>.csv.
type Cache struct {
	Dir       string
	Category  string
	Retention int
}

// Path returns the cache file of target.
func (c *Cache) Path(target model.Target) string {
	return table.Path(c.Dir, c.Category, target)
}

// Load reads cached candles. A missing file yields no candles.
func (c *Cache) Load(target model.Target) ([]model.OHLCV, error) {
	f, err := os.Open(c.Path(target))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(candleHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read candle cache: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	bars := make([]model.OHLCV, 0, len(rows)-1)
	for i, row := range rows[1:] {
		bar, err := decodeCandle(row)
		if err != nil {
			return nil, fmt.Errorf("candle cache row %d: %w", i+1, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// Merge adds fresh candles to the cache, keeping the earliest-seen row per open time
// and only the most recent Retention rows, and returns the stored series.
func (c *Cache) Merge(target model.Target, fresh []model.OHLCV) ([]model.OHLCV, error) {
	cached, err := c.Load(target)
	if err != nil {
		return nil, err
	}
	merged := table.MergeByTime(cached, fresh, func(b model.OHLCV) time.Time { return b.Time })
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })
	merged = table.RetainTail(merged, c.Retention)

	if err := c.save(target, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (c *Cache) save(target model.Target, bars []model.OHLCV) error {
	path := c.Path(target)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(candleHeader); err != nil {
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			b.Time.UTC().Format(table.TimeLayout),
			formatF(b.Open), formatF(b.High), formatF(b.Low), formatF(b.Close),
			formatF(b.Volume), formatF(b.Turnover),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func decodeCandle(row []string) (model.OHLCV, error) {
	var bar model.OHLCV
	t, err := time.ParseInLocation(table.TimeLayout, row[0], time.UTC)
	if err != nil {
		return bar, fmt.Errorf("open_time: %w", err)
	}
	bar.Time = t
	fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &bar.Turnover}
	for i, dst := range fields {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return bar, fmt.Errorf("%s: %w", candleHeader[i+1], err)
		}
		*dst = v
	}
	return bar, nil
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
