package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Evaluator evaluates a single symbol. Errors are isolated to that symbol.
type Evaluator interface {
	EvaluateSymbol(ctx context.Context, symbol string) error
}

// PassObserver is notified after every completed or aborted pass.
type PassObserver interface {
	PassCompleted(report PassReport)
}

// Timing holds the loop pacing.
type Timing struct {
	SymbolDelay   time.Duration // between symbols in the continuous loop
	OnceDelay     time.Duration // between symbols in RunOnce
	ErrorDelay    time.Duration // extra pause after a failed symbol
	PassInterval  time.Duration // between passes
	RecoveryDelay time.Duration // after a failed pass
	StopGrace     time.Duration // how long Stop waits for the loop to exit
}

// DefaultTiming returns the production pacing.
func DefaultTiming() Timing {
	return Timing{
		SymbolDelay:   time.Second,
		OnceDelay:     500 * time.Millisecond,
		ErrorDelay:    5 * time.Second,
		PassInterval:  600 * time.Second,
		RecoveryDelay: 60 * time.Second,
		StopGrace:     5 * time.Second,
	}
}

// PassMode distinguishes continuous passes from RunOnce.
type PassMode string

const (
	ModeLoop PassMode = "loop"
	ModeOnce PassMode = "once"
)

// SymbolFailure records a symbol whose evaluation failed during a pass.
type SymbolFailure struct {
	Symbol string
	Err    error
}

// PassReport summarizes one pass over the universe.
type PassReport struct {
	ID        string
	Mode      PassMode
	Started   time.Time
	Finished  time.Time
	Evaluated int
	Failures  []SymbolFailure
	Aborted   bool
}

// Duration returns how long the pass took.
func (r PassReport) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Loop drives periodic evaluation of a fixed symbol universe.
type Loop struct {
	symbols   []string
	eval      Evaluator
	pacer     Pacer
	timing    Timing
	observers []PassObserver

	mu      sync.Mutex // guards cancel/done
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	onceMu sync.Mutex
}

// NewLoop creates a stopped Loop. A nil pacer uses TimerPacer.
func NewLoop(symbols []string, eval Evaluator, pacer Pacer, timing Timing, observers ...PassObserver) *Loop {
	if pacer == nil {
		pacer = TimerPacer{}
	}
	syms := make([]string, len(symbols))
	copy(syms, symbols)
	return &Loop{
		symbols:   syms,
		eval:      eval,
		pacer:     pacer,
		timing:    timing,
		observers: observers,
	}
}

// Symbols returns the evaluated universe in evaluation order.
func (l *Loop) Symbols() []string {
	out := make([]string, len(l.symbols))
	copy(out, l.symbols)
	return out
}

// Running reports whether the continuous loop is active.
func (l *Loop) Running() bool { return l.running.Load() }

// Start launches the continuous loop under ctx. It returns false if the
// loop is already running.
func (l *Loop) Start(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel, l.done = cancel, done
	l.running.Store(true)

	go l.run(loopCtx, done)
	log.Info("signal analysis started")
	return true
}

// Stop signals the loop to exit and waits up to StopGrace for it. It returns
// false if the loop was not running. The loop counts as stopped afterwards
// even if it did not exit within the grace period.
func (l *Loop) Stop() bool {
	l.mu.Lock()
	if l.cancel == nil {
		l.mu.Unlock()
		return false
	}
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.running.Store(false)
	l.mu.Unlock()

	cancel()
	grace := time.NewTimer(l.timing.StopGrace)
	defer grace.Stop()
	select {
	case <-done:
		log.Info("signal analysis stopped")
	case <-grace.C:
		log.Warnf("signal analysis loop did not exit within %v", l.timing.StopGrace)
	}
	return true
}

// RunOnce evaluates the whole universe synchronously, regardless of whether
// the continuous loop is running. Concurrent calls are serialized.
func (l *Loop) RunOnce(ctx context.Context) PassReport {
	l.onceMu.Lock()
	defer l.onceMu.Unlock()

	log.Info("single analysis pass started")
	report, err := l.pass(ctx, ModeOnce, l.timing.OnceDelay)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("single analysis pass: %v", err)
	}
	log.Infof("single analysis pass finished: %d evaluated, %d failed", report.Evaluated, len(report.Failures))
	return report
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer func() {
		// a parent cancellation ends the loop without Stop; leave it startable
		l.mu.Lock()
		if l.done == done {
			l.cancel()
			l.cancel, l.done = nil, nil
			l.running.Store(false)
			log.Info("signal analysis loop exited")
		}
		l.mu.Unlock()
		close(done)
	}()
	for {
		delay := l.timing.PassInterval
		report, err := l.pass(ctx, ModeLoop, l.timing.SymbolDelay)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.WithField("pass", report.ID).Errorf("analysis pass: %v", err)
			delay = l.timing.RecoveryDelay
		}
		if err := l.pacer.Pause(ctx, delay); err != nil {
			return
		}
	}
}

// pass evaluates every symbol once. A panic in the pass control logic is
// returned as an error.
func (l *Loop) pass(ctx context.Context, mode PassMode, delay time.Duration) (report PassReport, err error) {
	report = PassReport{ID: uuid.NewString(), Mode: mode, Started: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pass panic: %v", r)
		}
		report.Finished = time.Now()
		l.notify(report)
	}()

	for _, symbol := range l.symbols {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			return report, err
		}

		report.Evaluated++
		if err := l.evaluate(ctx, symbol); err != nil {
			log.WithFields(log.Fields{"symbol": symbol, "pass": report.ID}).Warnf("signal check failed: %v", err)
			report.Failures = append(report.Failures, SymbolFailure{Symbol: symbol, Err: err})
			if err := l.pacer.Pause(ctx, l.timing.ErrorDelay); err != nil {
				report.Aborted = true
				return report, err
			}
		}

		if err := l.pacer.Pause(ctx, delay); err != nil {
			report.Aborted = true
			return report, err
		}
	}
	return report, nil
}

// evaluate runs one symbol, converting a panic into an error.
func (l *Loop) evaluate(ctx context.Context, symbol string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluate %s panic: %v", symbol, r)
		}
	}()
	return l.eval.EvaluateSymbol(ctx, symbol)
}

func (l *Loop) notify(report PassReport) {
	for _, o := range l.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("pass", report.ID).Errorf("pass observer panic: %v", r)
				}
			}()
			o.PassCompleted(report)
		}()
	}
}
