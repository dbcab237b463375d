package calculator

import (
	"errors"
	"fmt"

	"WaveSentinel/internal/model"
)

// SMA computes the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, fmt.Errorf("%w: SMA(%d) has %d prices", model.ErrInsufficientData, period, len(prices))
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// EMA computes the exponential moving average of prices, seeded with the
// first price. At least period prices are required.
func EMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, fmt.Errorf("%w: EMA(%d) has %d prices", model.ErrInsufficientData, period, len(prices))
	}
	alpha := Alpha(period)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = emaStep(alpha, p, ema)
	}
	return ema, nil
}

func closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
