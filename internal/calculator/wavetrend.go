package calculator

import (
	"fmt"
	"math"

	"WaveSentinel/internal/model"
)

// WaveParams configures the WaveTrend oscillator.
type WaveParams struct {
	FastPeriod      int     // n1, channel length
	SlowPeriod      int     // n2, average length
	ChannelConstant float64 // scales the mean deviation
}

// DefaultWaveParams returns n1=10, n2=21 and the usual 0.015 constant.
func DefaultWaveParams() WaveParams {
	return WaveParams{FastPeriod: 10, SlowPeriod: 21, ChannelConstant: 0.015}
}

// MinBars is the minimum number of candles the oscillator is computed over.
func (p WaveParams) MinBars() int {
	if p.FastPeriod > p.SlowPeriod {
		return p.FastPeriod
	}
	return p.SlowPeriod
}

// waveState carries the running recurrence between candles.
type waveState struct {
	p      WaveParams
	a1, a2 float64
	esa    float64
	dev    float64
	wave   float64
	seeded bool
}

func newWaveState(p WaveParams) *waveState {
	return &waveState{p: p, a1: Alpha(p.FastPeriod), a2: Alpha(p.SlowPeriod)}
}

func (s *waveState) next(c model.Candle) model.OscillatorPoint {
	ap := (c.High + c.Low + c.Close) / 3

	if !s.seeded {
		s.esa = ap
		s.dev = math.Abs(ap - s.esa)
	} else {
		s.esa = emaStep(s.a1, ap, s.esa)
		s.dev = emaStep(s.a1, math.Abs(ap-s.esa), s.dev)
	}

	ci := 0.0
	if s.dev != 0 {
		ci = (ap - s.esa) / (s.p.ChannelConstant * s.dev)
	}

	if !s.seeded {
		s.wave = ci
		s.seeded = true
	} else {
		s.wave = emaStep(s.a2, ci, s.wave)
	}

	return model.OscillatorPoint{
		Candle:          c,
		AveragePrice:    ap,
		SmoothedAverage: s.esa,
		Deviation:       s.dev,
		ChannelIndex:    ci,
		WaveValue:       s.wave,
	}
}

// WaveTrend computes the oscillator over candles in time order. Input shorter
// than p.MinBars() is returned as points with no derived fields.
func WaveTrend(candles []model.Candle, p WaveParams) []model.OscillatorPoint {
	points := make([]model.OscillatorPoint, len(candles))
	if len(candles) < p.MinBars() {
		for i, c := range candles {
			points[i] = model.OscillatorPoint{Candle: c}
		}
		return points
	}

	s := newWaveState(p)
	for i, c := range candles {
		points[i] = s.next(c)
	}
	return points
}

// LatestWave runs the same recurrence as WaveTrend but keeps only the final
// point. It also rejects malformed candles, which WaveTrend passes through.
func LatestWave(candles []model.Candle, p WaveParams) (model.OscillatorPoint, error) {
	if len(candles) == 0 || len(candles) < p.MinBars() {
		return model.OscillatorPoint{}, fmt.Errorf("%w: have %d, need %d", model.ErrInsufficientData, len(candles), p.MinBars())
	}

	s := newWaveState(p)
	var last model.OscillatorPoint
	for i, c := range candles {
		if !c.Valid() {
			return model.OscillatorPoint{}, fmt.Errorf("%w: index %d", model.ErrMalformedCandle, i)
		}
		last = s.next(c)
	}
	return last, nil
}
