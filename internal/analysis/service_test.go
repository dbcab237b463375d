package analysis

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync"
	"testing"
	"time"

	"WaveSentinel/internal/collector"
	"WaveSentinel/internal/model"
	"WaveSentinel/internal/scheduler"
	"WaveSentinel/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// parkPacer returns immediately except for pauses of length park, which wait
// for cancellation.
type parkPacer struct{ park time.Duration }

func (p parkPacer) Pause(ctx context.Context, d time.Duration) error {
	if d == p.park {
		<-ctx.Done()
	}
	return ctx.Err()
}

// instantPacer never waits.
type instantPacer struct{}

func (instantPacer) Pause(ctx context.Context, _ time.Duration) error {
	runtime.Gosched()
	return ctx.Err()
}

type recordingSink struct {
	mu     sync.Mutex
	events []model.SignalEvent
	err    error
}

func (r *recordingSink) Publish(_ context.Context, ev model.SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func newTestService(t *testing.T, f collector.Fetcher, symbols []string, sinks ...Sink) *Service {
	t.Helper()
	timing := scheduler.DefaultTiming()
	return New(context.Background(), f, Options{
		Symbols:  symbols,
		Location: time.UTC,
		Pacer:    parkPacer{park: timing.PassInterval},
		Timing:   timing,
		Sinks:    sinks,
		Now:      func() time.Time { return fixedNow },
	})
}

func types(evs []model.SignalEvent) []model.SignalType {
	out := make([]model.SignalType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func TestService_FullCycle(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	s := newTestService(t, collector.NewMockFetcher(100), []string{"BTCUSDT"}, sink)

	// decline: BUY
	require.NoError(t, s.EvaluateSymbol(ctx, "BTCUSDT"))
	active := s.ActiveSignals()
	require.Len(t, active, 1)
	buy := active[0]
	assert.Equal(t, model.SignalBuy, buy.Type)
	assert.Equal(t, uint64(1), buy.ID)
	assert.InDelta(t, 73.6687, buy.Price, 1e-3)
	assert.LessOrEqual(t, buy.WaveValue, -70.0)
	assert.Equal(t, "09:30", buy.Time)
	assert.Equal(t, "01-03-2024", buy.Date)

	// flat above entry: PROFIT, still open
	require.NoError(t, s.EvaluateSymbol(ctx, "BTCUSDT"))
	assert.Len(t, s.ActiveSignals(), 1)
	st := s.Status()
	assert.Equal(t, 1, st.OpenPositionCount)
	assert.Equal(t, 2, st.HistoryCount)

	// rally: SELL, position cleared
	require.NoError(t, s.EvaluateSymbol(ctx, "BTCUSDT"))
	assert.Empty(t, s.ActiveSignals())

	hist := s.History(0)
	require.Len(t, hist, 3)
	assert.Equal(t, []model.SignalType{model.SignalBuy, model.SignalProfit, model.SignalSell}, types(hist))
	assert.InDelta(t, 15.25, hist[1].ProfitPercent, 0.05)
	assert.Contains(t, hist[1].Message, "10% PROFIT REACHED: BTCUSDT")
	assert.InDelta(t, 82.25, hist[2].ProfitPercent, 0.05)
	assert.GreaterOrEqual(t, hist[2].WaveValue, 65.0)
	assert.Equal(t, buy.Price, hist[2].EntryPrice)

	// the cycle restarts: re-entry
	require.NoError(t, s.EvaluateSymbol(ctx, "BTCUSDT"))
	assert.Len(t, s.ActiveSignals(), 1)

	assert.Equal(t, s.History(0), sink.events)
	for i, ev := range sink.events {
		assert.Equal(t, uint64(i+1), ev.ID)
	}
}

func TestService_NoDuplicateBuy(t *testing.T) {
	ctx := context.Background()
	f := collector.NewMockFetcher(100)
	f.Script("ETHUSDT", collector.MockResponse{Candles: collector.TrendBars(100, 40, 10, -0.03)})
	s := newTestService(t, f, []string{"ETHUSDT"})

	for i := 0; i < 3; i++ {
		require.NoError(t, s.EvaluateSymbol(ctx, "ETHUSDT"))
	}
	assert.Len(t, s.History(0), 1)
	assert.Len(t, s.ActiveSignals(), 1)
}

func TestService_ErrorsLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := collector.NewMockFetcher(100)
	upstream := &collector.UpstreamError{Kind: collector.UpstreamStatus, Symbol: "XRPUSDT", StatusCode: 502}
	f.Script("XRPUSDT",
		collector.MockResponse{Candles: collector.TrendBars(100, 40, 10, -0.03)},
		collector.MockResponse{Err: upstream},
		collector.MockResponse{Candles: collector.TrendBars(100, 5, 0, 0)},
	)
	s := newTestService(t, f, []string{"XRPUSDT"})

	require.NoError(t, s.EvaluateSymbol(ctx, "XRPUSDT"))
	before := s.ActiveSignals()

	err := s.EvaluateSymbol(ctx, "XRPUSDT")
	var ue *collector.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 502, ue.StatusCode)

	err = s.EvaluateSymbol(ctx, "XRPUSDT")
	var ce *model.ComputationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "XRPUSDT", ce.Symbol)
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	assert.Equal(t, before, s.ActiveSignals())
	assert.Len(t, s.History(0), 1)
}

func TestService_SinkErrorIgnored(t *testing.T) {
	sink := &recordingSink{err: errors.New("telegram down")}
	s := newTestService(t, collector.NewMockFetcher(100), []string{"SOLUSDT"}, sink)

	require.NoError(t, s.EvaluateSymbol(context.Background(), "SOLUSDT"))
	assert.Len(t, sink.events, 1)
	assert.Len(t, s.ActiveSignals(), 1)
}

func TestService_Portfolio(t *testing.T) {
	ctx := context.Background()
	f := collector.NewMockFetcher(100)
	decline := collector.MockResponse{Candles: collector.TrendBars(100, 40, 10, -0.03)}
	f.Script("AUSDT", decline, collector.MockResponse{Err: &collector.UpstreamError{Kind: collector.UpstreamNetwork, Symbol: "AUSDT"}})
	f.Script("BUSDT", decline, collector.MockResponse{Candles: collector.TrendBars(85, 50, 0, 0)})
	s := newTestService(t, f, []string{"AUSDT", "BUSDT"})

	require.NoError(t, s.EvaluateSymbol(ctx, "AUSDT"))
	require.NoError(t, s.EvaluateSymbol(ctx, "BUSDT"))
	require.Len(t, s.ActiveSignals(), 2)

	pf := s.Portfolio(ctx)
	require.Len(t, pf, 1)
	assert.Equal(t, "BUSDT", pf[0].Symbol)
	assert.InDelta(t, 84.9, pf[0].CurrentPrice, 1e-9)
	assert.InDelta(t, 15.25, pf[0].ProfitPercent, 0.05)
	assert.Equal(t, "active", pf[0].Status)
	assert.Equal(t, "09:30", pf[0].EntryTime)
}

func TestService_NotificationsBounded(t *testing.T) {
	ctx := context.Background()
	f := collector.NewMockFetcher(100)
	s := New(ctx, f, Options{FeedSize: 2, Location: time.UTC, Now: func() time.Time { return fixedNow }})

	for i := 0; i < 3; i++ {
		require.NoError(t, s.EvaluateSymbol(ctx, "BTCUSDT"))
	}
	assert.Len(t, s.History(0), 3)
	feed := s.Notifications(0)
	require.Len(t, feed, 2)
	assert.Equal(t, []model.SignalType{model.SignalProfit, model.SignalSell}, types(feed))
	assert.Len(t, s.Notifications(1), 1)
}

func TestService_FeedSizeCapped(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, collector.NewMockFetcher(100), Options{FeedSize: 500, Location: time.UTC, Now: func() time.Time { return fixedNow }})

	for i := 0; i < 300; i++ {
		require.NoError(t, s.EvaluateSymbol(ctx, "BTCUSDT"))
	}
	assert.Len(t, s.History(0), 300)
	assert.Len(t, s.Notifications(1000), store.MaxFeedSize)
}

func TestService_ConcurrentLoopRunOnceAndQueries(t *testing.T) {
	ctx := context.Background()
	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	sink := &recordingSink{}
	s := New(ctx, collector.NewMockFetcher(100), Options{
		Symbols:  symbols,
		Location: time.UTC,
		Pacer:    instantPacer{},
		Sinks:    []Sink{sink},
		Now:      func() time.Time { return fixedNow },
	})
	require.True(t, s.Start())

	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				rep := s.RunOnce(ctx)
				assert.False(t, rep.Aborted)
				assert.Empty(t, rep.Failures)
			}
		}()
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				st := s.Status()
				assert.True(t, st.Running)
				assert.LessOrEqual(t, st.OpenPositionCount, len(symbols))
				assert.LessOrEqual(t, len(s.ActiveSignals()), len(symbols))
				assert.LessOrEqual(t, len(s.Notifications(0)), store.MaxFeedSize)
				_ = s.History(10)
				for _, pe := range s.Portfolio(ctx) {
					assert.Contains(t, symbols, pe.Symbol)
				}
				_, _ = s.Indicators(ctx, sym)
				_, _ = s.Chart(ctx, sym, 5)
			}
		}(symbols[r%len(symbols)])
	}
	wg.Wait()
	require.True(t, s.Stop())

	hist := s.History(0)
	require.NotEmpty(t, hist)
	open := make(map[string]bool)
	for i, ev := range hist {
		assert.Equal(t, uint64(i+1), ev.ID)
		switch ev.Type {
		case model.SignalBuy:
			assert.False(t, open[ev.Symbol], "second BUY for open %s at #%d", ev.Symbol, ev.ID)
			open[ev.Symbol] = true
		case model.SignalProfit:
			assert.True(t, open[ev.Symbol], "PROFIT for flat %s at #%d", ev.Symbol, ev.ID)
		case model.SignalSell:
			assert.True(t, open[ev.Symbol], "SELL for flat %s at #%d", ev.Symbol, ev.ID)
			delete(open, ev.Symbol)
		}
	}

	active := s.ActiveSignals()
	assert.Len(t, active, len(open))
	for _, a := range active {
		assert.True(t, open[a.Symbol], a.Symbol)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, hist, sink.events)
}

func TestService_RunOnceAndLifecycle(t *testing.T) {
	f := collector.NewMockFetcher(100)
	f.Script("BADUSDT", collector.MockResponse{Err: errors.New("boom")})
	s := newTestService(t, f, []string{"BTCUSDT", "BADUSDT", "ETHUSDT"})

	report := s.RunOnce(context.Background())
	assert.Equal(t, 3, report.Evaluated)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "BADUSDT", report.Failures[0].Symbol)
	assert.Len(t, s.ActiveSignals(), 2)

	assert.False(t, s.Status().Running)
	assert.True(t, s.Start())
	assert.False(t, s.Start())
	assert.True(t, s.Status().Running)
	assert.True(t, s.Stop())
	assert.False(t, s.Stop())
	assert.False(t, s.Status().Running)
	assert.Equal(t, []string{"BTCUSDT", "BADUSDT", "ETHUSDT"}, s.Symbols())
}

func TestService_IndicatorsAndChart(t *testing.T) {
	ctx := context.Background()
	f := collector.NewMockFetcher(100)
	f.Script("BTCUSDT", collector.MockResponse{Candles: collector.TrendBars(100, 40, 10, -0.03)})
	f.Script("ETHUSDT", collector.MockResponse{Candles: collector.TrendBars(100, 5, 0, 0)})
	s := newTestService(t, f, []string{"BTCUSDT", "ETHUSDT"})

	snap, err := s.Indicators(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.LessOrEqual(t, snap.WaveValue, -70.0)
	assert.Less(t, snap.RSI, 30.0)

	points, err := s.Chart(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, points, 10)
	assert.Equal(t, snap.WaveValue, points[9].WaveValue)

	_, err = s.Indicators(ctx, "ETHUSDT")
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	_, err = s.Chart(ctx, "DOGEUSDT", 0)
	assert.ErrorIs(t, err, model.ErrUnknownSymbol)

	bad := collector.TrendBars(100, 40, 10, -0.03)
	bad[len(bad)-1].Close = math.NaN()
	f.Script("BTCUSDT", collector.MockResponse{Candles: bad})
	_, err = s.Chart(ctx, "BTCUSDT", 0)
	assert.ErrorIs(t, err, model.ErrMalformedCandle)

	assert.Empty(t, s.History(0), "queries do not emit signals")
}
