package model

import "time"

// SignalType tags the variant of a SignalEvent.
type SignalType string

const (
	SignalBuy    SignalType = "BUY"
	SignalProfit SignalType = "PROFIT"
	SignalSell   SignalType = "SELL"
)

// SignalEvent is an emitted state transition. Which payload fields are set
// depends on Type:
//   - BUY:    WaveValue, Strength
//   - PROFIT: EntryPrice, ProfitPercent, EntryTime, EntryDate
//   - SELL:   EntryPrice, ProfitPercent (total), EntryTime, EntryDate, WaveValue
type SignalEvent struct {
	ID        uint64     `json:"id"`
	Type      SignalType `json:"type"`
	Symbol    string     `json:"symbol"`
	Price     float64    `json:"price"`
	Message   string     `json:"message"`
	Time      string     `json:"time"`
	Date      string     `json:"date"`
	Timestamp time.Time  `json:"timestamp"`

	WaveValue     float64 `json:"wt1,omitempty"`
	Strength      float64 `json:"strength,omitempty"`
	EntryPrice    float64 `json:"entry_price,omitempty"`
	ProfitPercent float64 `json:"profit_percent,omitempty"`
	EntryTime     string  `json:"entry_time,omitempty"`
	EntryDate     string  `json:"entry_date,omitempty"`
}

// ActiveSignal is the BUY event of a currently open position.
type ActiveSignal = SignalEvent
