package calculator

import (
	"errors"
	"math"

	"WaveSentinel/internal/model"
)

// Range returns the highest high and lowest low of the most recent lookback
// candles. lookback <= 0 scans everything.
func Range(candles []model.Candle, lookback int) (high, low float64, err error) {
	if len(candles) == 0 {
		return 0, 0, model.ErrInsufficientData
	}
	start := 0
	if lookback > 0 && len(candles) > lookback {
		start = len(candles) - lookback
	}

	high = -math.MaxFloat64
	low = math.MaxFloat64
	for _, c := range candles[start:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low, nil
}

// RangePosition calculates where current sits within [low, high] as 0-100.
func RangePosition(current, high, low float64) (float64, error) {
	if high <= low {
		return 0, errors.New("high must be greater than low")
	}
	pos := (current - low) / (high - low) * 100
	return math.Max(0, math.Min(100, pos)), nil
}
