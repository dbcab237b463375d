package calculator

// Alpha returns the EMA smoothing factor 2/(period+1).
func Alpha(period int) float64 {
	return 2.0 / float64(period+1)
}

// emaStep advances an exponential moving average by one value.
func emaStep(alpha, value, prev float64) float64 {
	return alpha*value + (1-alpha)*prev
}
