package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"WaveSentinel/internal/collector"
	"WaveSentinel/internal/model"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit      = 50
	defaultNotificationLimit = 20
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PassSummary is the run-once response payload.
type PassSummary struct {
	ID         string            `json:"id"`
	Evaluated  int               `json:"evaluated"`
	Failed     int               `json:"failed"`
	Aborted    bool              `json:"aborted"`
	DurationMS int64             `json:"duration_ms"`
	Failures   map[string]string `json:"failures,omitempty"`
}

// SignalHandler serves the analysis engine over HTTP.
type SignalHandler struct {
	engine Engine
}

func NewSignalHandler(e Engine) *SignalHandler {
	return &SignalHandler{engine: e}
}

func (h *SignalHandler) Start(c *gin.Context) {
	msg := "signal analysis started"
	if !h.engine.Start() {
		msg = "signal analysis is already running"
	}
	respond(c, http.StatusOK, envelope{Success: true, Message: msg})
}

func (h *SignalHandler) Stop(c *gin.Context) {
	msg := "signal analysis stopped"
	if !h.engine.Stop() {
		msg = "signal analysis is already stopped"
	}
	respond(c, http.StatusOK, envelope{Success: true, Message: msg})
}

func (h *SignalHandler) RunOnce(c *gin.Context) {
	rep := h.engine.RunOnce(c.Request.Context())
	if rep.Aborted {
		respond(c, http.StatusServiceUnavailable, envelope{Error: "analysis pass aborted"})
		return
	}
	sum := PassSummary{
		ID:         rep.ID,
		Evaluated:  rep.Evaluated,
		Failed:     len(rep.Failures),
		DurationMS: rep.Duration().Milliseconds(),
	}
	if len(rep.Failures) > 0 {
		sum.Failures = make(map[string]string, len(rep.Failures))
		for _, f := range rep.Failures {
			sum.Failures[f.Symbol] = f.Err.Error()
		}
	}
	respond(c, http.StatusOK, envelope{Success: true, Message: "single analysis pass completed", Data: sum})
}

func (h *SignalHandler) Status(c *gin.Context) {
	respond(c, http.StatusOK, envelope{Success: true, Data: h.engine.Status()})
}

func (h *SignalHandler) Active(c *gin.Context) {
	respond(c, http.StatusOK, envelope{Success: true, Data: h.engine.ActiveSignals()})
}

func (h *SignalHandler) History(c *gin.Context) {
	limit := queryLimit(c, defaultHistoryLimit)
	respond(c, http.StatusOK, envelope{Success: true, Data: h.engine.History(limit)})
}

func (h *SignalHandler) Notifications(c *gin.Context) {
	limit := queryLimit(c, defaultNotificationLimit)
	respond(c, http.StatusOK, envelope{Success: true, Data: h.engine.Notifications(limit)})
}

func (h *SignalHandler) Portfolio(c *gin.Context) {
	respond(c, http.StatusOK, envelope{Success: true, Data: h.engine.Portfolio(c.Request.Context())})
}

func (h *SignalHandler) Indicators(c *gin.Context) {
	snap, err := h.engine.Indicators(c.Request.Context(), symbolParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, envelope{Success: true, Data: snap})
}

func (h *SignalHandler) Chart(c *gin.Context) {
	points, err := h.engine.Chart(c.Request.Context(), symbolParam(c), queryLimit(c, 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, envelope{Success: true, Data: points})
}

func symbolParam(c *gin.Context) string {
	return strings.ToUpper(c.Param("symbol"))
}

// queryLimit reads ?limit=, falling back to def when absent or not an integer.
func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return n
}

// respondError maps engine errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var ue *collector.UpstreamError
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrUnknownSymbol):
		code = http.StatusNotFound
	case errors.As(err, &ue):
		code = http.StatusBadGateway
	case errors.Is(err, model.ErrInsufficientData), errors.Is(err, model.ErrMalformedCandle):
		code = http.StatusUnprocessableEntity
	}
	respond(c, code, envelope{Error: err.Error()})
}

// respond encodes body before writing the status, so a payload that cannot
// be encoded becomes a 500 instead of an empty 200.
func respond(c *gin.Context, code int, body envelope) {
	data, err := json.Marshal(body)
	if err != nil {
		log.WithField("path", c.Request.URL.Path).Errorf("encode response: %v", err)
		c.JSON(http.StatusInternalServerError, envelope{Error: "failed to encode response"})
		return
	}
	c.Data(code, "application/json; charset=utf-8", data)
}
