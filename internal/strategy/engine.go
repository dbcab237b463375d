package strategy

import (
	"fmt"
	"math"
	"time"

	"WaveSentinel/internal/model"
)

const (
	timeLayout = "15:04"
	dateLayout = "02-01-2006"
)

// Thresholds are the oscillator and profit levels driving transitions.
type Thresholds struct {
	Oversold     float64 // BUY when wave <= Oversold
	ProfitTarget float64 // PROFIT when gain % >= ProfitTarget
	Exit         float64 // SELL when profit was hit and wave >= Exit
}

// DefaultThresholds returns -70 / 10% / 65.
func DefaultThresholds() Thresholds {
	return Thresholds{Oversold: -70, ProfitTarget: 10, Exit: 65}
}

// Engine evaluates the per-symbol position state machine.
type Engine struct {
	Thresholds Thresholds
	Location   *time.Location // used for the human-readable Time/Date fields
}

// NewEngine creates an Engine. A nil location falls back to UTC.
func NewEngine(th Thresholds, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{Thresholds: th, Location: loc}
}

// Transition is the outcome of one evaluation. Record is the state to commit
// (nil means flat); Closed is the final copy of a record exited in this step.
type Transition struct {
	Record *model.InstrumentRecord
	Closed *model.InstrumentRecord
	Events []model.SignalEvent
}

// Changed reports whether anything was emitted.
func (t Transition) Changed() bool { return len(t.Events) > 0 }

// Evaluate applies the BUY, PROFIT and SELL rules, in that order, to the latest
// oscillator point. rec is never modified.
func (e *Engine) Evaluate(symbol string, rec *model.InstrumentRecord, pt model.OscillatorPoint, now time.Time) Transition {
	local := now.In(e.Location)
	clock, date := local.Format(timeLayout), local.Format(dateLayout)
	price, wave := pt.Close, pt.WaveValue

	tr := Transition{Record: rec}

	if rec == nil && wave <= e.Thresholds.Oversold {
		buy := model.SignalEvent{
			Type:      model.SignalBuy,
			Symbol:    symbol,
			Price:     price,
			Message:   fmt.Sprintf("🚀 BUY SIGNAL: %s - Price: %.6f", symbol, price),
			Time:      clock,
			Date:      date,
			Timestamp: now,
			WaveValue: wave,
			Strength:  math.Abs(wave),
		}
		tr.Record = &model.InstrumentRecord{
			Symbol:     symbol,
			EntryPrice: price,
			EntryAt:    now,
			EntryTime:  clock,
			EntryDate:  date,
			EntryWave:  wave,
			Entry:      buy,
		}
		tr.Events = append(tr.Events, buy)
	}

	if tr.Record == nil || tr.Record.EntryPrice <= 0 {
		return tr
	}

	profit := tr.Record.ProfitPercent(price)

	if !tr.Record.ProfitTriggered && profit >= e.Thresholds.ProfitTarget {
		next := *tr.Record
		next.ProfitTriggered = true
		next.ProfitAt = now
		next.ProfitTime = clock
		next.ProfitDate = date
		tr.Record = &next

		tr.Events = append(tr.Events, model.SignalEvent{
			Type:          model.SignalProfit,
			Symbol:        symbol,
			Price:         price,
			Message:       fmt.Sprintf("🎉 %.0f%% PROFIT REACHED: %s - Profit: %.2f%%", e.Thresholds.ProfitTarget, symbol, profit),
			Time:          clock,
			Date:          date,
			Timestamp:     now,
			EntryPrice:    next.EntryPrice,
			ProfitPercent: profit,
			EntryTime:     next.EntryTime,
			EntryDate:     next.EntryDate,
		})
	}

	if tr.Record.ProfitTriggered && wave >= e.Thresholds.Exit {
		closed := *tr.Record
		closed.TrendEndTime = clock
		closed.TrendEndDate = date
		closed.TotalProfitPercent = profit

		tr.Events = append(tr.Events, model.SignalEvent{
			Type:          model.SignalSell,
			Symbol:        symbol,
			Price:         price,
			Message:       fmt.Sprintf("⚠️ TREND END: %s - Total Profit: %.2f%%", symbol, profit),
			Time:          clock,
			Date:          date,
			Timestamp:     now,
			EntryPrice:    closed.EntryPrice,
			ProfitPercent: profit,
			EntryTime:     closed.EntryTime,
			EntryDate:     closed.EntryDate,
			WaveValue:     wave,
		})
		tr.Closed = &closed
		tr.Record = nil
	}

	return tr
}
