package telemetry

import (
	"time"

	"github.com/p4forge/p4forge/pkg/orchestrator"
)

// RunObserver feeds orchestrator lifecycle notifications into the metrics
// collector. It satisfies orchestrator.Observer. All methods are invoked
// from the accumulator goroutine, so no locking is needed.
type RunObserver struct {
	metrics *Metrics
	started time.Time

	// dispatched tracks task IDs that entered a worker. Skipped tasks are
	// finished without ever starting and must not drain the in-flight gauge.
	dispatched map[string]bool
}

// NewRunObserver creates an observer backed by the given metrics collector.
func NewRunObserver(m *Metrics) *RunObserver {
	return &RunObserver{metrics: m, dispatched: make(map[string]bool)}
}

func (o *RunObserver) RunStarted(run *orchestrator.Run, plan *orchestrator.BuildPlan) {
	o.started = run.StartedAt
	o.metrics.RecordRunStarted()
}

func (o *RunObserver) TaskStarted(run *orchestrator.Run, task *orchestrator.BuildTask) {
	o.dispatched[task.ID] = true
	o.metrics.RecordTaskStarted()
}

func (o *RunObserver) TaskFinished(run *orchestrator.Run, task *orchestrator.BuildTask, result *orchestrator.TaskResult) {
	o.metrics.RecordTaskFinished(result.Package, string(result.Status), result.Duration, o.dispatched[task.ID])
	delete(o.dispatched, task.ID)
}

func (o *RunObserver) RunFinished(run *orchestrator.Run) {
	duration := time.Since(o.started)
	if run.CompletedAt != nil {
		duration = run.CompletedAt.Sub(run.StartedAt)
	}
	o.metrics.RecordRunCompleted(string(run.Status), duration)
}
