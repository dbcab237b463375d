package recorder

import (
	"WaveSentinel/internal/model"
	"WaveSentinel/internal/scheduler"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSignal(_ *model.SignalEvent) error  { return nil }
func (n *NoopRecorder) RecordPass(_ *scheduler.PassReport) error { return nil }
func (n *NoopRecorder) Close() error                             { return nil }
