package model

import "time"

// InstrumentRecord is the open-position state of one symbol. A nil
// *InstrumentRecord means the symbol is flat.
//
// Records are treated as immutable values: every change produces a new copy
// that replaces the old one in the position store.
type InstrumentRecord struct {
	Symbol string
	Seq    uint64 // entry order, assigned by the position store

	EntryPrice float64
	EntryAt    time.Time
	EntryTime  string
	EntryDate  string
	EntryWave  float64

	ProfitTriggered bool
	ProfitAt        time.Time
	ProfitTime      string
	ProfitDate      string

	// Set only on the closing copy handed out with the SELL event.
	TrendEndTime       string
	TrendEndDate       string
	TotalProfitPercent float64

	// Entry is the BUY event that opened the position.
	Entry SignalEvent
}

// ProfitPercent returns the unrealized gain of price against the entry price.
func (r *InstrumentRecord) ProfitPercent(price float64) float64 {
	return (price - r.EntryPrice) / r.EntryPrice * 100
}

// PortfolioEntry is the live view of one open position.
type PortfolioEntry struct {
	Symbol        string  `json:"symbol"`
	EntryPrice    float64 `json:"entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	ProfitPercent float64 `json:"profit_percent"`
	EntryTime     string  `json:"entry_time"`
	EntryDate     string  `json:"entry_date"`
	Status        string  `json:"status"` // "active" or "profit"
}

// Status summarizes the analysis engine.
type Status struct {
	Running           bool `json:"analysis_running"`
	ActiveCount       int  `json:"active_signals_count"`
	HistoryCount      int  `json:"total_signals_count"`
	OpenPositionCount int  `json:"portfolio_count"`
}
