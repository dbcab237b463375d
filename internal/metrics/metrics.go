package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"WaveSentinel/internal/collector"
	"WaveSentinel/internal/model"
	"WaveSentinel/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Metrics holds the Prometheus metrics for the signal engine. It observes
// passes and committed signals.
type Metrics struct {
	PassesTotal      *prometheus.CounterVec // labels: mode
	PassesAborted    prometheus.Counter
	PassDuration     *prometheus.HistogramVec // labels: mode
	SymbolsEvaluated prometheus.Counter
	SymbolFailures   *prometheus.CounterVec // labels: kind
	SignalsTotal     *prometheus.CounterVec // labels: type
	LastPassTime     prometheus.Gauge

	reg *prometheus.Registry
}

// NewMetrics creates and registers all metrics on reg. A nil reg gets a fresh
// registry with the Go and process collectors.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		PassesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wavesentinel_passes_total",
			Help: "Analysis passes completed (by mode)",
		}, []string{"mode"}),
		PassesAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wavesentinel_passes_aborted_total",
			Help: "Analysis passes cut short by a stop",
		}),
		PassDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wavesentinel_pass_duration_seconds",
			Help:    "Wall time of one pass over the symbol universe, pauses included",
			Buckets: []float64{1, 5, 10, 15, 20, 30, 60, 120, 300},
		}, []string{"mode"}),
		SymbolsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wavesentinel_symbols_evaluated_total",
			Help: "Symbol evaluations attempted",
		}),
		SymbolFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wavesentinel_symbol_failures_total",
			Help: "Symbol evaluations that failed (by kind)",
		}, []string{"kind"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wavesentinel_signals_total",
			Help: "Signal events emitted (by type)",
		}, []string{"type"}),
		LastPassTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wavesentinel_last_pass_timestamp_seconds",
			Help: "Unix time the last pass finished",
		}),
		reg: reg,
	}

	reg.MustRegister(
		m.PassesTotal,
		m.PassesAborted,
		m.PassDuration,
		m.SymbolsEvaluated,
		m.SymbolFailures,
		m.SignalsTotal,
		m.LastPassTime,
	)
	return m
}

// TrackEngine exports live engine gauges read from status on every scrape.
func (m *Metrics) TrackEngine(status func() model.Status) {
	m.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "wavesentinel_analysis_running",
			Help: "1 while the continuous loop is running",
		}, func() float64 {
			if status().Running {
				return 1
			}
			return 0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "wavesentinel_open_positions",
			Help: "Currently open positions",
		}, func() float64 { return float64(status().OpenPositionCount) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "wavesentinel_history_size",
			Help: "Signal events held in the unbounded history",
		}, func() float64 { return float64(status().HistoryCount) }),
	)
}

// PassCompleted records a finished pass.
func (m *Metrics) PassCompleted(rep scheduler.PassReport) {
	mode := string(rep.Mode)
	m.PassesTotal.WithLabelValues(mode).Inc()
	m.PassDuration.WithLabelValues(mode).Observe(rep.Duration().Seconds())
	m.SymbolsEvaluated.Add(float64(rep.Evaluated))
	if rep.Aborted {
		m.PassesAborted.Inc()
	}
	for _, f := range rep.Failures {
		m.SymbolFailures.WithLabelValues(FailureKind(f.Err)).Inc()
	}
	m.LastPassTime.Set(float64(rep.Finished.Unix()))
}

// Publish counts a committed signal event.
func (m *Metrics) Publish(_ context.Context, ev model.SignalEvent) error {
	m.SignalsTotal.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

// FailureKind classifies a symbol evaluation error for labelling.
func FailureKind(err error) string {
	var ue *collector.UpstreamError
	var ce *model.ComputationError
	switch {
	case errors.As(err, &ue):
		return "upstream_" + string(ue.Kind)
	case errors.As(err, &ce):
		return "computation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Health serves /healthz.
type Health struct {
	StartedAt time.Time
	Status    func() model.Status
}

// NewHealth returns a Health reporting on status.
func NewHealth(status func() model.Status) *Health {
	return &Health{StartedAt: time.Now(), Status: status}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	st := h.Status()
	body := struct {
		Status  string `json:"status"`
		Uptime  string `json:"uptime"`
		Running bool   `json:"analysis_running"`
		Open    int    `json:"portfolio_count"`
	}{
		Status:  "ok",
		Uptime:  time.Since(h.StartedAt).Round(time.Second).String(),
		Running: st.Running,
		Open:    st.OpenPositionCount,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics, health *Health) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Infof("metrics server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
