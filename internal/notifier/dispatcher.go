package notifier

import (
	"context"
	"errors"

	"WaveSentinel/internal/model"

	log "github.com/sirupsen/logrus"
)

// ErrQueueFull is returned by Publish when the outbound queue has no room.
var ErrQueueFull = errors.New("notification queue full")

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Dispatcher pushes signal events to Telegram from its own goroutine so that
// slow deliveries never hold up evaluation.
type Dispatcher struct {
	sender  Sender
	retries int
	queue   chan string
}

// NewDispatcher creates a Dispatcher buffering up to size messages.
func NewDispatcher(sender Sender, size, retries int) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	return &Dispatcher{sender: sender, retries: retries, queue: make(chan string, size)}
}

// Publish queues ev for delivery. It never blocks.
func (d *Dispatcher) Publish(_ context.Context, ev model.SignalEvent) error {
	select {
	case d.queue <- FormatSignal(ev):
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued messages until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := len(d.queue); n > 0 {
				log.Warnf("dropping %d undelivered notifications", n)
			}
			return
		case msg := <-d.queue:
			if err := d.sender.SendWithRetry(ctx, msg, d.retries); err != nil {
				log.Errorf("send notification: %v", err)
			}
		}
	}
}
