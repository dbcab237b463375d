package calculator

import (
	"testing"

	"WaveSentinel/internal/collector"
	"WaveSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSI(t *testing.T) {
	up := collector.TrendBars(100, 0, 20, 0.01)
	rsi, err := RSI(up, 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rsi)

	down := collector.TrendBars(100, 0, 20, -0.01)
	rsi, err = RSI(down, 14)
	require.NoError(t, err)
	assert.InDelta(t, 0, rsi, 1e-9)

	rsi, err = RSI(constantCandles(20, 50), 14)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rsi)

	_, err = RSI(up[:14], 14)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	_, err = RSI(up, 0)
	assert.Error(t, err)
}

func TestMovingAverages(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}

	sma, err := SMA(prices, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.5, sma)

	ema, err := EMA([]float64{10, 10, 10}, 3)
	require.NoError(t, err)
	assert.Equal(t, 10.0, ema)

	// alpha = 0.5: 1 -> 1.5 -> 2.25
	ema, err = EMA([]float64{1, 2, 3}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 2.25, ema, 1e-12)

	_, err = SMA(prices, 6)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	_, err = EMA(prices, 6)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestRange(t *testing.T) {
	candles := []model.Candle{
		{High: 12, Low: 8, Close: 10},
		{High: 20, Low: 9, Close: 15},
		{High: 14, Low: 11, Close: 12},
	}
	high, low, err := Range(candles, 0)
	require.NoError(t, err)
	assert.Equal(t, 20.0, high)
	assert.Equal(t, 8.0, low)

	high, low, err = Range(candles, 1)
	require.NoError(t, err)
	assert.Equal(t, 14.0, high)
	assert.Equal(t, 11.0, low)

	_, _, err = Range(nil, 5)
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	pos, err := RangePosition(15, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, 50.0, pos)
	pos, _ = RangePosition(25, 20, 10)
	assert.Equal(t, 100.0, pos)
	_, err = RangePosition(10, 10, 10)
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	candles := collector.TrendBars(100, 40, 10, -0.03)
	snap, err := Snapshot("BTCUSDT", candles, DefaultWaveParams())
	require.NoError(t, err)

	last, _ := LatestWave(candles, DefaultWaveParams())
	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, last.WaveValue, snap.WaveValue)
	assert.Equal(t, last.Close, snap.Price)
	assert.Less(t, snap.RSI, 30.0)
	assert.Greater(t, snap.EMA20, snap.Price)
	assert.Greater(t, snap.EMA50, snap.EMA20)
	assert.Greater(t, snap.SMA20, snap.Price)

	short, err := Snapshot("BTCUSDT", candles[len(candles)-30:], DefaultWaveParams())
	require.NoError(t, err)
	assert.Equal(t, 0.0, short.EMA50, "not enough history for EMA50")
	assert.NotZero(t, short.EMA20)
	assert.Less(t, snap.RangePosition, 5.0)
	assert.Greater(t, snap.Resistance, snap.Support)

	_, err = Snapshot("BTCUSDT", candles[:5], DefaultWaveParams())
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}
