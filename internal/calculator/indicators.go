package calculator

import "WaveSentinel/internal/model"

const (
	rsiPeriod     = 14
	fastEMAPeriod = 20
	slowEMAPeriod = 50
	rangeLookback = 48
)

// Snapshot derives the indicator overview for the latest candle. The wave
// value is required; the secondary indicators are left at zero when there
// is not enough history for them.
func Snapshot(symbol string, candles []model.Candle, p WaveParams) (model.IndicatorSnapshot, error) {
	pt, err := LatestWave(candles, p)
	if err != nil {
		return model.IndicatorSnapshot{}, err
	}

	snap := model.IndicatorSnapshot{
		Symbol:       symbol,
		Timestamp:    pt.Timestamp,
		Price:        pt.Close,
		WaveValue:    pt.WaveValue,
		ChannelIndex: pt.ChannelIndex,
	}

	optional := func(v float64, err error) float64 {
		if err != nil {
			return 0
		}
		return v
	}
	cl := closes(candles)
	snap.RSI = optional(RSI(candles, rsiPeriod))
	snap.SMA20 = optional(SMA(cl, fastEMAPeriod))
	snap.EMA20 = optional(EMA(cl, fastEMAPeriod))
	snap.EMA50 = optional(EMA(cl, slowEMAPeriod))

	if high, low, err := Range(candles, rangeLookback); err == nil {
		snap.Resistance, snap.Support = high, low
		snap.RangePosition = optional(RangePosition(pt.Close, high, low))
	}
	return snap, nil
}
