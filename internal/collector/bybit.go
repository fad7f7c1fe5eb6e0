package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"DowSentinel/internal/model"

	"golang.org/x/time/rate"
)

// DefaultBybitURL is the public Bybit REST endpoint.
const DefaultBybitURL = "https://api.bybit.com"

// BybitFetcher implements Fetcher using the Bybit v5 market kline API.
type BybitFetcher struct {
	BaseURL    string
	Client     *http.Client
	Limiter    *rate.Limiter
	MaxRetries int

	now func() time.Time
}

// NewBybitFetcher creates a rate-limited fetcher with optional proxy support.
func NewBybitFetcher(baseURL, proxyURL string, requestsPerSecond float64, maxRetries int) *BybitFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = DefaultBybitURL
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &BybitFetcher{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		MaxRetries: maxRetries,
		now:        time.Now,
	}
}

func (f *BybitFetcher) Name() string { return "bybit" }

// bybitKlines is the response structure of GET /v5/market/kline.
// Each list entry is [startMs, open, high, low, close, volume, turnover], newest first.
type bybitKlines struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	} `json:"result"`
}

func (f *BybitFetcher) FetchKlines(ctx context.Context, category string, target model.Target, limit int) ([]model.OHLCV, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", target.Symbol)
	params.Set("interval", target.Interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	endpoint := f.BaseURL + "/v5/market/kline?" + params.Encode()

	var (
		body    []byte
		lastErr error
	)
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= f.MaxRetries; attempt++ {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, lastErr = f.get(ctx, endpoint)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < f.MaxRetries {
			log.Printf("[WARN] bybit %s fetch failed (attempt %d/%d): %v, retrying in %v",
				target, attempt+1, f.MaxRetries+1, lastErr, backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("bybit fetch %s: %w", target, lastErr)
	}

	var resp bybitKlines
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bybit decode: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit api error %d: %s", resp.RetCode, resp.RetMsg)
	}

	bars := make([]model.OHLCV, 0, len(resp.Result.List))
	for _, row := range resp.Result.List {
		bar, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("bybit kline: %w", err)
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	// The newest candle is still forming until its interval has elapsed.
	if n := len(bars); n > 0 {
		if d, ok := IntervalDuration(target.Interval); ok && bars[n-1].Time.Add(d).After(f.now()) {
			bars = bars[:n-1]
		}
	}
	return bars, nil
}

func (f *BybitFetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func parseKline(row []string) (model.OHLCV, error) {
	var bar model.OHLCV
	if len(row) < 7 {
		return bar, fmt.Errorf("expected 7 fields, got %d", len(row))
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return bar, fmt.Errorf("start time %q: %w", row[0], err)
	}
	bar.Time = time.UnixMilli(ms).UTC()

	fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &bar.Turnover}
	for i, dst := range fields {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return bar, fmt.Errorf("field %d %q: %w", i+1, row[i+1], err)
		}
		*dst = v
	}
	return bar, nil
}

// IntervalDuration converts a Bybit interval ("1".."720" minutes, "D", "W") to a duration.
// Monthly candles have no fixed length and report ok=false.
func IntervalDuration(interval string) (time.Duration, bool) {
	switch interval {
	case "D":
		return 24 * time.Hour, true
	case "W":
		return 7 * 24 * time.Hour, true
	case "M":
		return 0, false
	}
	minutes, err := strconv.Atoi(interval)
	if err != nil || minutes <= 0 {
		return 0, false
	}
	return time.Duration(minutes) * time.Minute, true
}

// ValidateInterval rejects intervals Bybit does not serve.
func ValidateInterval(interval string) error {
	switch interval {
	case "1", "3", "5", "15", "30", "60", "120", "240", "360", "720", "D", "W", "M":
		return nil
	}
	return errors.New("unsupported interval " + strconv.Quote(interval))
}
