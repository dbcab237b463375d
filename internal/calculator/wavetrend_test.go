package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WaveSentinel/internal/collector"
	"WaveSentinel/internal/model"
)

func constantCandles(n int, price float64) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{Timestamp: int64(i), Open: price, High: price, Low: price, Close: price}
	}
	return candles
}

func TestWaveTrend_ShortInputUnchanged(t *testing.T) {
	p := DefaultWaveParams()
	for _, n := range []int{0, 1, 10, p.MinBars() - 1} {
		candles := collector.TrendBars(100, n, 0, 0)[:n]
		points := WaveTrend(candles, p)
		require.Len(t, points, n)
		for i, pt := range points {
			assert.Equal(t, candles[i], pt.Candle)
			assert.Zero(t, pt.AveragePrice)
			assert.Zero(t, pt.WaveValue)
		}
	}
}

func TestWaveTrend_Deterministic(t *testing.T) {
	candles := collector.TrendBars(100, 40, 10, -0.03)
	first := WaveTrend(candles, DefaultWaveParams())
	second := WaveTrend(candles, DefaultWaveParams())
	assert.Equal(t, first, second)
}

func TestWaveTrend_ZeroDeviationGuard(t *testing.T) {
	points := WaveTrend(constantCandles(30, 100), DefaultWaveParams())
	for i, pt := range points {
		assert.Zero(t, pt.Deviation, "index %d", i)
		assert.Equal(t, 0.0, pt.ChannelIndex, "index %d", i)
		assert.False(t, math.IsNaN(pt.WaveValue) || math.IsInf(pt.WaveValue, 0), "index %d", i)
		assert.Equal(t, 0.0, pt.WaveValue, "index %d", i)
	}
}

func TestWaveTrend_Seeding(t *testing.T) {
	candles := collector.TrendBars(100, 30, 0, 0)
	points := WaveTrend(candles, DefaultWaveParams())

	first := points[0]
	ap := (candles[0].High + candles[0].Low + candles[0].Close) / 3
	assert.Equal(t, ap, first.AveragePrice)
	assert.Equal(t, ap, first.SmoothedAverage)
	assert.Zero(t, first.Deviation)
	assert.Zero(t, first.ChannelIndex)
	assert.Zero(t, first.WaveValue)
}

func TestWaveTrend_Causal(t *testing.T) {
	candles := collector.TrendBars(100, 40, 10, 0.02)
	full := WaveTrend(candles, DefaultWaveParams())
	prefix := WaveTrend(candles[:35], DefaultWaveParams())
	assert.Equal(t, full[:35], prefix)
}

func TestWaveTrend_Extremes(t *testing.T) {
	down := WaveTrend(collector.TrendBars(100, 40, 10, -0.03), DefaultWaveParams())
	assert.LessOrEqual(t, down[len(down)-1].WaveValue, -70.0)

	up := WaveTrend(collector.TrendBars(100, 40, 10, 0.03), DefaultWaveParams())
	assert.GreaterOrEqual(t, up[len(up)-1].WaveValue, 65.0)
}

func TestLatestWave_MatchesSeries(t *testing.T) {
	for _, step := range []float64{-0.03, -0.01, 0, 0.02} {
		candles := collector.TrendBars(100, 40, 10, step)
		points := WaveTrend(candles, DefaultWaveParams())
		last, err := LatestWave(candles, DefaultWaveParams())
		require.NoError(t, err)
		assert.Equal(t, points[len(points)-1], last, "step %v", step)
	}
}

func TestLatestWave_Errors(t *testing.T) {
	_, err := LatestWave(collector.TrendBars(100, 20, 0, 0), DefaultWaveParams())
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	_, err = LatestWave(nil, DefaultWaveParams())
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	candles := collector.TrendBars(100, 30, 0, 0)
	candles[12].High = math.NaN()
	_, err = LatestWave(candles, DefaultWaveParams())
	assert.ErrorIs(t, err, model.ErrMalformedCandle)

	candles = collector.TrendBars(100, 30, 0, 0)
	candles[29].Close = 0
	_, err = LatestWave(candles, DefaultWaveParams())
	assert.ErrorIs(t, err, model.ErrMalformedCandle)
}
