// Package metrics provides observability hooks for export runs.
package metrics

import "time"

// OutcomeLabel enumerates export outcome categories for counters.
type OutcomeLabel string

const (
	OutcomeSuccess OutcomeLabel = "success"
	OutcomeNoOp    OutcomeLabel = "noop"
	OutcomeWarning OutcomeLabel = "warning"
	OutcomeFailed  OutcomeLabel = "failed"
)

// Recorder defines observability hooks for export and stage metrics.
// Implementations may forward to Prometheus. All methods must be safe
// on the NoopRecorder so injection stays optional.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveExportDuration(d time.Duration)
	IncExportOutcome(outcome OutcomeLabel)
	SetNotebooksExported(n int)
	SetNotesExported(n int)
	SetResourcesExported(n int)
	AddBrokenLinks(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics
// are not configured, including every single-shot export).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveExportDuration(time.Duration)       {}
func (NoopRecorder) IncExportOutcome(OutcomeLabel)             {}
func (NoopRecorder) SetNotebooksExported(int)                  {}
func (NoopRecorder) SetNotesExported(int)                      {}
func (NoopRecorder) SetResourcesExported(int)                  {}
func (NoopRecorder) AddBrokenLinks(int)                        {}
