package collector

import (
	"context"

	"DowSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchKlines returns up to limit closed candles for target, oldest first.
	FetchKlines(ctx context.Context, category string, target model.Target, limit int) ([]model.OHLCV, error)
	Name() string
}
