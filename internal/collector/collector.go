package collector

import (
	"context"
	"sync"

	"WaveSentinel/internal/model"
)

// MockResponse is one scripted FetchCandles result.
type MockResponse struct {
	Candles []model.Candle
	Err     error
}

// MockFetcher returns controllable data for development and testing.
// Scripted responses are consumed in order per symbol and the last one
// repeats. Unscripted symbols get generated bars cycling through a
// decline, a flat range and a rally around Price.
type MockFetcher struct {
	Price float64

	mu        sync.Mutex
	responses map[string][]MockResponse
	calls     map[string]int
}

// NewMockFetcher creates a MockFetcher generating bars around price.
func NewMockFetcher(price float64) *MockFetcher {
	return &MockFetcher{
		Price:     price,
		responses: make(map[string][]MockResponse),
		calls:     make(map[string]int),
	}
}

func (m *MockFetcher) Name() string { return "mock" }

// Script queues responses for symbol.
func (m *MockFetcher) Script(symbol string, rs ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[symbol] = append(m.responses[symbol], rs...)
}

// Calls returns how many times symbol has been fetched.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func (m *MockFetcher) FetchCandles(ctx context.Context, symbol, _ string, limit int) ([]model.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Kind: UpstreamNetwork, Symbol: symbol, Err: err}
	}

	m.mu.Lock()
	n := m.calls[symbol]
	m.calls[symbol]++
	queue := m.responses[symbol]
	var resp MockResponse
	if len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			m.responses[symbol] = queue[1:]
		}
	} else {
		resp.Candles = m.generate(n)
	}
	m.mu.Unlock()

	if resp.Err != nil {
		return nil, resp.Err
	}
	candles := resp.Candles
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	out := make([]model.Candle, len(candles))
	copy(out, candles)
	return out, nil
}

func (m *MockFetcher) generate(call int) []model.Candle {
	price := m.Price
	if price <= 0 {
		price = 100
	}
	switch call % 3 {
	case 0:
		return TrendBars(price, 40, 10, -0.03)
	case 1:
		return TrendBars(price*0.85, 50, 0, 0)
	default:
		return TrendBars(price, 40, 10, 0.03)
	}
}

// TrendBars builds `flat` hourly bars alternating around base followed by
// `moves` bars compounding by step.
func TrendBars(base float64, flat, moves int, step float64) []model.Candle {
	bars := make([]model.Candle, 0, flat+moves)
	add := func(p float64) {
		bars = append(bars, model.Candle{
			Timestamp: int64(len(bars)) * 3_600_000,
			Open:      p,
			High:      p * 1.002,
			Low:       p * 0.998,
			Close:     p,
			Volume:    1000,
		})
	}
	for i := 0; i < flat; i++ {
		if i%2 == 0 {
			add(base + 0.1)
		} else {
			add(base - 0.1)
		}
	}
	p := base
	if len(bars) > 0 {
		p = bars[len(bars)-1].Close
	}
	for i := 0; i < moves; i++ {
		p *= 1 + step
		add(p)
	}
	return bars
}
