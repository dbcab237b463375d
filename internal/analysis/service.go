package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"WaveSentinel/internal/calculator"
	"WaveSentinel/internal/collector"
	"WaveSentinel/internal/model"
	"WaveSentinel/internal/scheduler"
	"WaveSentinel/internal/store"
	"WaveSentinel/internal/strategy"

	log "github.com/sirupsen/logrus"
)

// Sink receives every committed signal event. Errors are logged and never
// roll back engine state.
type Sink interface {
	Publish(ctx context.Context, ev model.SignalEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev model.SignalEvent) error

func (f SinkFunc) Publish(ctx context.Context, ev model.SignalEvent) error { return f(ctx, ev) }

// Options configures a Service. Zero fields take the package defaults.
type Options struct {
	Symbols    []string
	Interval   string
	Limit      int
	FeedSize   int
	Timing     scheduler.Timing
	Thresholds strategy.Thresholds
	Wave       calculator.WaveParams
	Location   *time.Location
	Pacer      scheduler.Pacer
	Observers  []scheduler.PassObserver
	Sinks      []Sink
	Now        func() time.Time
}

func (o *Options) applyDefaults() {
	if o.Interval == "" {
		o.Interval = collector.DefaultInterval
	}
	if o.Limit <= 0 {
		o.Limit = collector.DefaultLimit
	}
	if o.FeedSize <= 0 {
		o.FeedSize = store.MaxFeedSize
	}
	if o.Timing == (scheduler.Timing{}) {
		o.Timing = scheduler.DefaultTiming()
	}
	if o.Thresholds == (strategy.Thresholds{}) {
		o.Thresholds = strategy.DefaultThresholds()
	}
	if o.Wave == (calculator.WaveParams{}) {
		o.Wave = calculator.DefaultWaveParams()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Service is the signal analysis engine: it owns the position map and the
// notification store, and drives them from the polling loop.
type Service struct {
	fetcher  collector.Fetcher
	engine   *strategy.Engine
	wave     calculator.WaveParams
	interval string
	limit    int
	sinks    []Sink
	now      func() time.Time
	universe map[string]bool

	positions *store.Positions
	notes     *store.Notifications
	loop      *scheduler.Loop

	base   context.Context
	evalMu sync.Mutex
}

// New creates a stopped Service. ctx bounds the lifetime of the loop started
// through Start.
func New(ctx context.Context, fetcher collector.Fetcher, opts Options) *Service {
	opts.applyDefaults()
	s := &Service{
		fetcher:   fetcher,
		engine:    strategy.NewEngine(opts.Thresholds, opts.Location),
		wave:      opts.Wave,
		interval:  opts.Interval,
		limit:     opts.Limit,
		sinks:     opts.Sinks,
		now:       opts.Now,
		positions: store.NewPositions(),
		notes:     store.NewNotifications(opts.FeedSize),
		base:      ctx,
		universe:  make(map[string]bool, len(opts.Symbols)),
	}
	for _, sym := range opts.Symbols {
		s.universe[sym] = true
	}
	s.loop = scheduler.NewLoop(opts.Symbols, s, opts.Pacer, opts.Timing, opts.Observers...)
	return s
}

// Start launches the continuous loop. It returns false if already running.
func (s *Service) Start() bool { return s.loop.Start(s.base) }

// Stop halts the continuous loop. It returns false if it was not running.
func (s *Service) Stop() bool { return s.loop.Stop() }

// Running reports whether the continuous loop is active.
func (s *Service) Running() bool { return s.loop.Running() }

// RunOnce performs a single synchronous pass over all symbols.
func (s *Service) RunOnce(ctx context.Context) scheduler.PassReport {
	return s.loop.RunOnce(ctx)
}

// Symbols returns the analyzed universe.
func (s *Service) Symbols() []string { return s.loop.Symbols() }

// EvaluateSymbol fetches candles for symbol, computes the latest oscillator
// value and commits any resulting transitions.
func (s *Service) EvaluateSymbol(ctx context.Context, symbol string) error {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	candles, err := s.fetcher.FetchCandles(ctx, symbol, s.interval, s.limit)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", symbol, err)
	}
	pt, err := calculator.LatestWave(candles, s.wave)
	if err != nil {
		return &model.ComputationError{Symbol: symbol, Err: err}
	}

	prev := s.positions.Get(symbol)
	tr := s.engine.Evaluate(symbol, prev, pt, s.now())
	if !tr.Changed() {
		log.WithFields(log.Fields{"symbol": symbol, "wt1": pt.WaveValue, "price": pt.Close}).Debug("no transition")
		return nil
	}

	events := make([]model.SignalEvent, 0, len(tr.Events))
	for _, ev := range tr.Events {
		ev = s.notes.Append(ev)
		if ev.Type == model.SignalBuy && tr.Record != nil {
			tr.Record.Entry = ev
		}
		events = append(events, ev)
	}
	switch {
	case tr.Record != nil:
		s.positions.Put(*tr.Record)
	case prev != nil:
		s.positions.Delete(symbol)
	}

	for _, ev := range events {
		log.WithFields(log.Fields{"symbol": ev.Symbol, "type": ev.Type, "id": ev.ID}).Info(ev.Message)
		s.publish(ctx, ev)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, ev model.SignalEvent) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			log.WithFields(log.Fields{"symbol": ev.Symbol, "id": ev.ID}).Errorf("publish signal: %v", err)
		}
	}
}

// Status summarizes the engine.
func (s *Service) Status() model.Status {
	open := s.positions.Len()
	return model.Status{
		Running:           s.loop.Running(),
		ActiveCount:       open,
		HistoryCount:      s.notes.HistoryLen(),
		OpenPositionCount: open,
	}
}

// ActiveSignals returns the BUY event of every open position in entry order.
func (s *Service) ActiveSignals() []model.ActiveSignal {
	return s.positions.ActiveSignals()
}

// History returns up to limit of the most recent events ever emitted, oldest
// first. limit <= 0 returns everything.
func (s *Service) History(limit int) []model.SignalEvent {
	return s.notes.History(limit)
}

// Notifications returns up to limit events from the bounded feed, oldest
// first.
func (s *Service) Notifications(limit int) []model.SignalEvent {
	return s.notes.Latest(limit)
}

// Portfolio prices every open position at the latest close. Symbols whose
// price cannot be fetched are left out.
func (s *Service) Portfolio(ctx context.Context) []model.PortfolioEntry {
	recs := s.positions.Snapshot()
	out := make([]model.PortfolioEntry, 0, len(recs))
	for _, rec := range recs {
		candles, err := s.fetcher.FetchCandles(ctx, rec.Symbol, s.interval, 1)
		if err == nil && len(candles) == 0 {
			err = model.ErrInsufficientData
		}
		if err != nil {
			log.WithField("symbol", rec.Symbol).Warnf("portfolio price: %v", err)
			continue
		}

		price := candles[len(candles)-1].Close
		status := "active"
		if rec.ProfitTriggered {
			status = "profit"
		}
		out = append(out, model.PortfolioEntry{
			Symbol:        rec.Symbol,
			EntryPrice:    rec.EntryPrice,
			CurrentPrice:  price,
			ProfitPercent: rec.ProfitPercent(price),
			EntryTime:     rec.EntryTime,
			EntryDate:     rec.EntryDate,
			Status:        status,
		})
	}
	return out
}

// Indicators fetches fresh candles for symbol and summarizes its latest
// indicator values. It does not touch engine state.
func (s *Service) Indicators(ctx context.Context, symbol string) (model.IndicatorSnapshot, error) {
	candles, err := s.fetchKnown(ctx, symbol, s.limit)
	if err != nil {
		return model.IndicatorSnapshot{}, err
	}
	snap, err := calculator.Snapshot(symbol, candles, s.wave)
	if err != nil {
		return model.IndicatorSnapshot{}, &model.ComputationError{Symbol: symbol, Err: err}
	}
	return snap, nil
}

// Chart returns the oscillator series for the most recent limit candles of
// symbol. limit <= 0 uses the analysis window.
func (s *Service) Chart(ctx context.Context, symbol string, limit int) ([]model.OscillatorPoint, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	candles, err := s.fetchKnown(ctx, symbol, s.limit)
	if err != nil {
		return nil, err
	}
	for i, c := range candles {
		if !c.Valid() {
			return nil, &model.ComputationError{Symbol: symbol, Err: fmt.Errorf("%w: index %d", model.ErrMalformedCandle, i)}
		}
	}
	points := calculator.WaveTrend(candles, s.wave)
	if len(points) > limit {
		points = points[len(points)-limit:]
	}
	return points, nil
}

func (s *Service) fetchKnown(ctx context.Context, symbol string, limit int) ([]model.Candle, error) {
	if !s.universe[symbol] {
		return nil, fmt.Errorf("%s: %w", symbol, model.ErrUnknownSymbol)
	}
	candles, err := s.fetcher.FetchCandles(ctx, symbol, s.interval, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return candles, nil
}
