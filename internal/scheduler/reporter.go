package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"WaveSentinel/internal/model"
	"WaveSentinel/internal/notifier"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Querier is the engine surface the reporter reads and controls.
type Querier interface {
	Status() model.Status
	ActiveSignals() []model.ActiveSignal
	History(limit int) []model.SignalEvent
	Portfolio(ctx context.Context) []model.PortfolioEntry
	Start() bool
	Stop() bool
	RunOnce(ctx context.Context) PassReport
	Indicators(ctx context.Context, symbol string) (model.IndicatorSnapshot, error)
}

// Messenger delivers a text message.
type Messenger interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// CommandHistoryLimit caps the /history reply.
const CommandHistoryLimit = 10

const sendRetries = 3

// Reporter sends the periodic digest and answers chat commands.
type Reporter struct {
	Cron     *cron.Cron
	Engine   Querier
	Notifier Messenger
	Ctx      context.Context
}

// NewReporter creates a Reporter whose cron specs are evaluated in loc.
func NewReporter(ctx context.Context, q Querier, m Messenger, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Engine:   q,
		Notifier: m,
		Ctx:      ctx,
	}
}

// Register schedules the digest. An empty spec disables it.
func (r *Reporter) Register(reportCron string) error {
	if reportCron == "" {
		return nil
	}
	if _, err := r.Cron.AddFunc(reportCron, r.sendDigest); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (r *Reporter) Start() {
	r.Cron.Start()
	log.Info("reporter started")
}

// Stop stops the cron scheduler and waits for a running digest.
func (r *Reporter) Stop() {
	<-r.Cron.Stop().Done()
	log.Info("reporter stopped")
}

// Digest renders engine status followed by the priced portfolio.
func (r *Reporter) Digest(ctx context.Context) string {
	return notifier.FormatStatus(r.Engine.Status()) + "\n" + notifier.FormatPortfolio(r.Engine.Portfolio(ctx))
}

func (r *Reporter) sendDigest() {
	log.Info("sending periodic digest")
	r.trySend(r.Digest(r.Ctx))
}

// HandleCommand processes a chat command and returns the reply.
func (r *Reporter) HandleCommand(ctx context.Context, command string) string {
	var cmd, arg string
	fields := strings.Fields(command)
	if len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	if len(fields) > 1 {
		arg = strings.ToUpper(fields[1])
	}
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/status":
		return notifier.FormatStatus(r.Engine.Status())
	case "/active":
		return notifier.FormatActive(r.Engine.ActiveSignals())
	case "/portfolio":
		return notifier.FormatPortfolio(r.Engine.Portfolio(ctx))
	case "/history":
		return notifier.FormatHistory(r.Engine.History(CommandHistoryLimit))
	case "/start":
		if !r.Engine.Start() {
			return "Signal analysis is already running."
		}
		return "Signal analysis started ▶️"
	case "/stop":
		if !r.Engine.Stop() {
			return "Signal analysis is not running."
		}
		return "Signal analysis stopped ⏸"
	case "/runonce":
		go r.runOnce()
		return "Single analysis pass started."
	case "/indicators":
		if arg == "" {
			return "Usage: /indicators SYMBOL"
		}
		snap, err := r.Engine.Indicators(ctx, arg)
		if err != nil {
			return fmt.Sprintf("Indicators unavailable for %s: %v", arg, err)
		}
		return notifier.FormatIndicators(snap)
	default:
		return "Available commands:\n/status\n/active\n/portfolio\n/history\n/indicators SYMBOL\n/start\n/stop\n/runonce"
	}
}

func (r *Reporter) runOnce() {
	report := r.Engine.RunOnce(r.Ctx)
	if report.Aborted {
		return
	}
	r.trySend(fmt.Sprintf("✅ Single pass finished in %v: %d evaluated, %d failed",
		report.Duration().Round(time.Second), report.Evaluated, len(report.Failures)))
}

func (r *Reporter) trySend(text string) {
	if err := r.Notifier.SendWithRetry(r.Ctx, text, sendRetries); err != nil {
		log.Errorf("send notification: %v", err)
	}
}
