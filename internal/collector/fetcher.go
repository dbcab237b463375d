package collector

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"time"

	"WaveSentinel/internal/model"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultInterval = "1h"
	DefaultLimit    = 200
)

// Fetcher defines the interface for fetching historical candles.
type Fetcher interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
	Name() string
}

// newClient builds an HTTP client with optional proxy support. timeout is
// capped at MaxTimeout.
func newClient(proxyURL string, timeout time.Duration) *http.Client {
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.Warnf("ignoring proxy %q: %v", proxyURL, err)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// newLimiter paces requests at rps. rps <= 0 disables pacing.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
