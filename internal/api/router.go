package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"WaveSentinel/internal/model"
	"WaveSentinel/internal/scheduler"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Engine is the analysis surface exposed over HTTP.
type Engine interface {
	Start() bool
	Stop() bool
	RunOnce(ctx context.Context) scheduler.PassReport
	Status() model.Status
	ActiveSignals() []model.ActiveSignal
	History(limit int) []model.SignalEvent
	Notifications(limit int) []model.SignalEvent
	Portfolio(ctx context.Context) []model.PortfolioEntry
	Indicators(ctx context.Context, symbol string) (model.IndicatorSnapshot, error)
	Chart(ctx context.Context, symbol string, limit int) ([]model.OscillatorPoint, error)
}

// NewRouter returns a gin engine serving the /api routes.
func NewRouter(e Engine) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), requestLogger())

	api := router.Group("/api")
	registerSignalRoutes(api, NewSignalHandler(e))
	return router
}

func registerSignalRoutes(router *gin.RouterGroup, h *SignalHandler) {
	signals := router.Group("/signals")
	{
		signals.POST("/start", h.Start)
		signals.POST("/stop", h.Stop)
		signals.POST("/run-once", h.RunOnce)
		signals.GET("/status", h.Status)
		signals.GET("/active", h.Active)
		signals.GET("/history", h.History)
		signals.GET("/portfolio", h.Portfolio)
		signals.GET("/notifications", h.Notifications)
	}
	router.GET("/indicators/:symbol", h.Indicators)
	router.GET("/chart/:symbol", h.Chart)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Debug("http request")
	}
}

// Server serves the API.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates an API server on addr.
func NewServer(addr string, h http.Handler) *Server {
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Infof("api server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("api server: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return nil
}
