package collector

import "fmt"

// UpstreamKind categorizes a price source failure.
type UpstreamKind string

const (
	UpstreamNetwork UpstreamKind = "network"
	UpstreamStatus  UpstreamKind = "status"
	UpstreamParse   UpstreamKind = "parse"
)

// UpstreamError is returned for any failure talking to the price provider.
type UpstreamError struct {
	Kind       UpstreamKind
	Symbol     string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("upstream %s %s: status %d, body: %s", e.Kind, e.Symbol, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("upstream %s %s: %v", e.Kind, e.Symbol, e.Err)
	default:
		return fmt.Sprintf("upstream %s %s", e.Kind, e.Symbol)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }
