package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"WaveSentinel/internal/model"
)

const (
	DefaultBaseURL = "https://api.binance.com"
	// MaxTimeout bounds a single klines request so a stalled upstream
	// cannot hold up the polling loop.
	MaxTimeout = 10 * time.Second
)

// BinanceFetcher implements Fetcher using a Binance-compatible klines endpoint.
type BinanceFetcher struct {
	BaseURL string
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewBinanceFetcher creates a fetcher with optional proxy support. timeout is
// capped at MaxTimeout; rps <= 0 disables request pacing.
func NewBinanceFetcher(baseURL, proxyURL string, timeout time.Duration, rps float64) *BinanceFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &BinanceFetcher{
		BaseURL: baseURL,
		Client:  newClient(proxyURL, timeout),
		Limiter: newLimiter(rps),
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// FetchCandles requests limit klines of the given interval for symbol.
func (f *BinanceFetcher) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if interval == "" {
		interval = DefaultInterval
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.BaseURL, params.Encode())

	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Kind: UpstreamNetwork, Symbol: symbol, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamNetwork, Symbol: symbol, Err: err}
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamNetwork, Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamNetwork, Symbol: symbol, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Kind: UpstreamStatus, Symbol: symbol, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	candles, err := decodeKlines(body)
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamParse, Symbol: symbol, Err: err}
	}
	return candles, nil
}

// decodeKlines parses rows of [openTime, open, high, low, close, volume, ...].
// Prices may be JSON strings (Binance) or numbers.
func decodeKlines(body []byte) ([]model.Candle, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	candles := make([]model.Candle, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline %d: expected at least 6 fields, got %d", i, len(row))
		}
		var ts int64
		if err := json.Unmarshal(row[0], &ts); err != nil {
			return nil, fmt.Errorf("kline %d open time: %w", i, err)
		}
		var vals [5]float64
		for j := range vals {
			v, err := parseNumber(row[j+1])
			if err != nil {
				return nil, fmt.Errorf("kline %d field %d: %w", i, j+1, err)
			}
			vals[j] = v
		}
		candles[i] = model.Candle{
			Timestamp: ts,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		}
	}

	// Ensure chronological order
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	return candles, nil
}

// parseNumber accepts a JSON number or a numeric string. NaN and Inf,
// which strconv accepts, are rejected.
func parseNumber(raw json.RawMessage) (float64, error) {
	var f float64
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		f = v
	} else if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	if !finite(f) {
		return 0, fmt.Errorf("non-finite value %s", raw)
	}
	return f, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
