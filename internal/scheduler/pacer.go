package scheduler

import (
	"context"
	"time"
)

// Pacer blocks for d or until ctx is done, whichever comes first. It returns
// ctx.Err() when interrupted.
type Pacer interface {
	Pause(ctx context.Context, d time.Duration) error
}

// TimerPacer pauses on a real timer.
type TimerPacer struct{}

func (TimerPacer) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
