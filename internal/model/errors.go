package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData means there are fewer candles than the oscillator needs.
	ErrInsufficientData = errors.New("insufficient candle data")
	// ErrMalformedCandle means a candle has a non-finite field or a non-positive close.
	ErrMalformedCandle = errors.New("malformed candle")
	// ErrUnknownSymbol means the symbol is not part of the analyzed universe.
	ErrUnknownSymbol = errors.New("symbol is not analyzed")
)

// ComputationError reports a symbol tick that was skipped because its candle
// data could not be evaluated.
type ComputationError struct {
	Symbol string
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("compute %s: %v", e.Symbol, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }
