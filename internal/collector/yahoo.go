package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"WaveSentinel/internal/model"
)

// DefaultYahooBaseURL is the Yahoo Finance chart endpoint host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API. Symbols
// quoted in USDT are requested as their USD tickers (BTCUSDT -> BTC-USD).
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	Limiter   *rate.Limiter
	SymbolMap map[string]string // overrides the derived ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration, rps float64) *YahooFetcher {
	return &YahooFetcher{
		BaseURL:   DefaultYahooBaseURL,
		Client:    newClient(proxyURL, timeout),
		Limiter:   newLimiter(rps),
		SymbolMap: map[string]string{},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	for _, quote := range []string{"USDT", "USDC", "BUSD", "USD"} {
		if base, ok := strings.CutSuffix(symbol, quote); ok && base != "" {
			return base + "-USD"
		}
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooIntervals maps kline intervals to Yahoo intervals and bar lengths.
var yahooIntervals = map[string]struct {
	name string
	bar  time.Duration
}{
	"1m":  {"1m", time.Minute},
	"5m":  {"5m", 5 * time.Minute},
	"15m": {"15m", 15 * time.Minute},
	"30m": {"30m", 30 * time.Minute},
	"1h":  {"1h", time.Hour},
	"1d":  {"1d", 24 * time.Hour},
	"1w":  {"1wk", 7 * 24 * time.Hour},
}

// yahooRange returns the smallest chart range holding n bars of length bar.
func yahooRange(bar time.Duration, n int) string {
	const day = 24 * time.Hour
	span := bar * time.Duration(n)
	for _, r := range []struct {
		name string
		d    time.Duration
	}{
		{"1d", day}, {"5d", 5 * day}, {"1mo", 30 * day}, {"3mo", 90 * day},
		{"6mo", 180 * day}, {"1y", 365 * day}, {"2y", 730 * day}, {"5y", 5 * 365 * day},
	} {
		if span <= r.d {
			return r.name
		}
	}
	return "max"
}

func (f *YahooFetcher) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if interval == "" {
		interval = DefaultInterval
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	iv, ok := yahooIntervals[interval]
	if !ok {
		return nil, &UpstreamError{Kind: UpstreamParse, Symbol: symbol, Err: fmt.Errorf("unsupported interval %q", interval)}
	}

	params := url.Values{}
	params.Set("interval", iv.name)
	params.Set("range", yahooRange(iv.bar, limit))
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), params.Encode())

	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Kind: UpstreamNetwork, Symbol: symbol, Err: fmt.Errorf("rate limit wait: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamNetwork, Symbol: symbol, Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamNetwork, Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamNetwork, Symbol: symbol, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Kind: UpstreamStatus, Symbol: symbol, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	candles, err := decodeChart(body)
	if err != nil {
		return nil, &UpstreamError{Kind: UpstreamParse, Symbol: symbol, Err: err}
	}
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func decodeChart(body []byte) ([]model.Candle, error) {
	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no data returned")
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	at := func(s []*float64, i int) (float64, bool) {
		if i >= len(s) || s[i] == nil {
			return 0, false
		}
		return *s[i], true
	}

	candles := make([]model.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		c, ok4 := at(quote.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue // null bars: no trades in the slot
		}
		v, _ := at(quote.Volume, i)
		if !finite(o, h, l, c, v) {
			return nil, fmt.Errorf("bar %d: non-finite value", i)
		}
		candles = append(candles, model.Candle{
			Timestamp: ts * 1000,
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    v,
		})
	}

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	return candles, nil
}
