package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"DowSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.OHLCV
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchKlines(_ context.Context, _ string, target model.Target, limit int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	step, ok := IntervalDuration(target.Interval)
	if !ok {
		step = 24 * time.Hour
	}
	return generateMockBars(m.Price, limit, step), nil
}

// generateMockBars produces a gentle zigzag so the series carries swings.
func generateMockBars(basePrice float64, count int, step time.Duration) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	end := time.Now().UTC().Truncate(step)
	for i := 0; i < count; i++ {
		wave := float64(i%12) - 6
		if wave < 0 {
			wave = -wave
		}
		p := basePrice * (1 + float64(i)*0.001 + wave*0.002)
		bars[i] = model.OHLCV{
			Time:     end.Add(-time.Duration(count-i) * step),
			Open:     p * 0.999,
			High:     p * 1.005,
			Low:      p * 0.995,
			Close:    p,
			Volume:   1000000,
			Turnover: p * 1000000,
		}
	}
	return bars
}

// Collector fetches candles for a target and folds them into the on-disk cache.
type Collector struct {
	Fetcher  Fetcher
	Cache    *Cache
	Category string
	Limit    int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, cache *Cache, limit int) *Collector {
	return &Collector{Fetcher: fetcher, Cache: cache, Category: cache.Category, Limit: limit}
}

// Collect fetches the latest candles, merges them into the cache and returns the cached series.
func (c *Collector) Collect(ctx context.Context, target model.Target) (*model.PriceSeries, error) {
	fresh, err := c.Fetcher.FetchKlines(ctx, c.Category, target, c.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	bars, err := c.Cache.Merge(target, fresh)
	if err != nil {
		return nil, fmt.Errorf("merge candle cache: %w", err)
	}
	log.Printf("[INFO] %s: fetched %d candles from %s, %d cached", target, len(fresh), c.Fetcher.Name(), len(bars))
	return &model.PriceSeries{
		Target:    target,
		Category:  c.Category,
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}
