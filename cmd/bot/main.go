package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"WaveSentinel/internal/analysis"
	"WaveSentinel/internal/api"
	"WaveSentinel/internal/calculator"
	"WaveSentinel/internal/collector"
	"WaveSentinel/internal/config"
	"WaveSentinel/internal/metrics"
	"WaveSentinel/internal/notifier"
	"WaveSentinel/internal/recorder"
	"WaveSentinel/internal/scheduler"
	"WaveSentinel/internal/strategy"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.Info("WaveSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	level, _ := log.ParseLevel(cfg.Log.Level)
	log.SetLevel(level)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("%v", err)
	}

	// Init fetcher
	var fetcher collector.Fetcher
	switch {
	case cfg.DataSource.Mock:
		fetcher = collector.NewMockFetcher(cfg.DataSource.MockPrice)
	case cfg.DataSource.Provider == "yahoo":
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.Timeout, cfg.DataSource.RateLimit)
	default:
		fetcher = collector.NewBinanceFetcher(cfg.DataSource.BaseURL, cfg.Proxy, cfg.DataSource.Timeout, cfg.DataSource.RateLimit)
	}
	log.Infof("data source: %s", fetcher.Name())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warnf("init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()
	journal := recorder.Journal{Recorder: rec}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(nil)
	sinks := []analysis.Sink{m, journal}

	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		dispatcher := notifier.NewDispatcher(tn, 64, 3)
		go dispatcher.Run(ctx)
		sinks = append(sinks, dispatcher)
	} else {
		log.Info("telegram not configured, push notifications disabled")
	}

	svc := analysis.New(ctx, fetcher, analysis.Options{
		Symbols:  cfg.Analysis.Symbols,
		Interval: cfg.DataSource.Interval,
		Limit:    cfg.DataSource.Limit,
		FeedSize: cfg.Analysis.FeedSize,
		Timing: scheduler.Timing{
			SymbolDelay:   cfg.Timing.SymbolDelay,
			OnceDelay:     cfg.Timing.OnceDelay,
			ErrorDelay:    cfg.Timing.ErrorDelay,
			PassInterval:  cfg.Timing.PassInterval,
			RecoveryDelay: cfg.Timing.RecoveryDelay,
			StopGrace:     cfg.Timing.StopGrace,
		},
		Thresholds: strategy.Thresholds{
			Oversold:     cfg.Analysis.Oversold,
			ProfitTarget: cfg.Analysis.ProfitTarget,
			Exit:         cfg.Analysis.Exit,
		},
		Wave: calculator.WaveParams{
			FastPeriod:      cfg.Analysis.FastPeriod,
			SlowPeriod:      cfg.Analysis.SlowPeriod,
			ChannelConstant: cfg.Analysis.ChannelConstant,
		},
		Location:  loc,
		Observers: []scheduler.PassObserver{m, journal},
		Sinks:     sinks,
	})
	m.TrackEngine(svc.Status)
	health := metrics.NewHealth(svc.Status)
	log.Infof("analyzing %d symbols", len(svc.Symbols()))

	// HTTP: API, plus /metrics and /healthz unless they get their own listener
	if level < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(svc)
	var metricsSrv *metrics.Server
	if cfg.HTTP.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.HTTP.MetricsAddr, m, health)
		metricsSrv.Start()
	} else {
		router.GET("/metrics", gin.WrapH(m.Handler()))
		router.GET("/healthz", gin.WrapH(health))
	}
	apiSrv := api.NewServer(cfg.HTTP.Addr, router)
	apiSrv.Start()

	// Telegram digest and commands
	var reporter *scheduler.Reporter
	if tn != nil {
		reporter = scheduler.NewReporter(ctx, svc, tn, loc)
		if err := reporter.Register(cfg.Schedule.ReportCron); err != nil {
			log.Fatalf("register cron tasks: %v", err)
		}
		reporter.Start()
		go tn.StartPolling(ctx, reporter.HandleCommand)
		log.Info("telegram polling started")
	}

	if cfg.Analysis.AutoStart {
		svc.Start()
	}

	log.Info("WaveSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	svc.Stop()
	if reporter != nil {
		reporter.Stop()
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := apiSrv.Stop(shutdownCtx); err != nil {
		log.Errorf("%v", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Stop(shutdownCtx); err != nil {
			log.Errorf("shutdown metrics server: %v", err)
		}
	}
	cancel()
	log.Info("WaveSentinel stopped")
}
