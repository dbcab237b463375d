package model

import (
	"math"
	"time"
)

// Candle is a single OHLCV bar as returned by the price source.
type Candle struct {
	Timestamp int64   `json:"timestamp"` // open time, ms since epoch
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time returns the candle open time.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp)
}

// Valid reports whether the prices are finite and the close is positive.
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.Close > 0
}

// OscillatorPoint is a candle extended with the WaveTrend intermediate series.
type OscillatorPoint struct {
	Candle
	AveragePrice    float64 `json:"ap"`
	SmoothedAverage float64 `json:"esa"`
	Deviation       float64 `json:"d"`
	ChannelIndex    float64 `json:"ci"`
	WaveValue       float64 `json:"wt1"`
}

// IndicatorSnapshot is an overview of one symbol's latest indicator values.
// Secondary indicators are zero when the history is too short for them.
type IndicatorSnapshot struct {
	Symbol        string  `json:"symbol"`
	Timestamp     int64   `json:"timestamp"`
	Price         float64 `json:"price"`
	WaveValue     float64 `json:"wt1"`
	ChannelIndex  float64 `json:"ci"`
	RSI           float64 `json:"rsi"`
	SMA20         float64 `json:"sma20"`
	EMA20         float64 `json:"ema20"`
	EMA50         float64 `json:"ema50"`
	Support       float64 `json:"support"`
	Resistance    float64 `json:"resistance"`
	RangePosition float64 `json:"range_position"`
}
