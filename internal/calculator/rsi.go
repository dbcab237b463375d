package calculator

import (
	"errors"
	"fmt"

	"WaveSentinel/internal/model"
)

// RSI computes the Wilder-smoothed RSI of the closes over the given period.
// Requires at least period+1 candles.
func RSI(candles []model.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(candles) < period+1 {
		return 0, fmt.Errorf("%w: RSI(%d) needs %d candles, have %d", model.ErrInsufficientData, period, period+1, len(candles))
	}

	cl := closes(candles)

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := cl[i] - cl[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for remaining bars
	for i := period + 1; i < len(cl); i++ {
		change := cl[i] - cl[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}
