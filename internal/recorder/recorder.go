package recorder

import (
	"context"

	"WaveSentinel/internal/model"
	"WaveSentinel/internal/scheduler"

	log "github.com/sirupsen/logrus"
)

// Recorder journals signal events and pass reports for offline analysis.
// Nothing is ever read back into the engine.
type Recorder interface {
	RecordSignal(ev *model.SignalEvent) error
	RecordPass(rep *scheduler.PassReport) error
	Close() error
}

// Journal adapts a Recorder to the engine's signal sink and pass observer
// hooks.
type Journal struct {
	Recorder Recorder
}

// Publish records a committed signal event.
func (j Journal) Publish(_ context.Context, ev model.SignalEvent) error {
	return j.Recorder.RecordSignal(&ev)
}

// PassCompleted records a finished pass. Errors are only logged.
func (j Journal) PassCompleted(rep scheduler.PassReport) {
	if err := j.Recorder.RecordPass(&rep); err != nil {
		log.WithField("pass", rep.ID).Errorf("record pass: %v", err)
	}
}
