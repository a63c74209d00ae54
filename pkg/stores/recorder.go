package stores

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/p4forge/p4forge/pkg/orchestrator"
)

// Recorder persists orchestrator lifecycle notifications into a Store. It
// satisfies orchestrator.Observer. Persistence failures are logged and
// never interrupt a build.
type Recorder struct {
	store   Store
	profile string
	jobs    int
	logger  zerolog.Logger
	ctx     context.Context
}

// NewRecorder creates a recorder that writes run history to the given
// store. profile is the serialized configuration snapshot stored with the
// run record.
func NewRecorder(ctx context.Context, store Store, profile string, jobs int, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:   store,
		profile: profile,
		jobs:    jobs,
		logger:  logger.With().Str("component", "recorder").Logger(),
		ctx:     ctx,
	}
}

func (r *Recorder) RunStarted(run *orchestrator.Run, plan *orchestrator.BuildPlan) {
	now := time.Now()
	rec := &Run{
		ID:        run.ID,
		Status:    string(run.Status),
		Profile:   r.profile,
		Jobs:      r.jobs,
		StartedAt: run.StartedAt,
		Total:     len(plan.Tasks),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateRun(r.ctx, rec); err != nil {
		r.logger.Warn().Err(err).Str("run", run.ID).Msg("failed to record run start")
	}
}

func (r *Recorder) TaskStarted(run *orchestrator.Run, task *orchestrator.BuildTask) {
	r.appendEvent(run.ID, &task.ID, EventLevelInfo, "build started")
}

func (r *Recorder) TaskFinished(run *orchestrator.Run, task *orchestrator.BuildTask, result *orchestrator.TaskResult) {
	rec := &PackageResult{
		RunID:    run.ID,
		TaskID:   result.TaskID,
		Package:  result.Package,
		Status:   string(result.Status),
		ExitCode: result.ExitCode,
		Duration: result.Duration,
	}
	if result.Arch != "" {
		rec.Arch = &result.Arch
	}
	if result.FailedStep != "" {
		step := string(result.FailedStep)
		rec.FailedStep = &step
	}
	if result.LogPath != "" {
		rec.LogPath = &result.LogPath
	}
	if result.Reason != "" {
		rec.Reason = &result.Reason
	}
	if !result.StartedAt.IsZero() {
		rec.StartedAt = &result.StartedAt
	}
	if err := r.store.CreatePackageResult(r.ctx, rec); err != nil {
		r.logger.Warn().Err(err).Str("task", result.TaskID).Msg("failed to record package result")
	}

	switch result.Status {
	case orchestrator.StatusFailed:
		msg := "build failed"
		if result.Err != nil {
			msg = result.Err.Error()
		}
		r.appendEvent(run.ID, &result.TaskID, EventLevelError, msg)
	case orchestrator.StatusSkipped:
		r.appendEvent(run.ID, &result.TaskID, EventLevelWarning, result.Reason)
	}
}

func (r *Recorder) RunFinished(run *orchestrator.Run) {
	summary := RunSummary{
		Total:     run.Summary.Total,
		Succeeded: run.Summary.Succeeded,
		Failed:    run.Summary.Failed,
		Skipped:   run.Summary.Skipped,
	}
	var errMsg *string
	if err := run.Err(); err != nil {
		msg := err.Error()
		errMsg = &msg
	}
	if err := r.store.FinishRun(r.ctx, run.ID, string(run.Status), summary, errMsg); err != nil {
		r.logger.Warn().Err(err).Str("run", run.ID).Msg("failed to record run finish")
	}
}

func (r *Recorder) appendEvent(runID string, taskID *string, level EventLevel, message string) {
	event := &Event{
		RunID:     runID,
		TaskID:    taskID,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
	if err := r.store.AppendEvent(r.ctx, event); err != nil {
		r.logger.Warn().Err(err).Str("run", runID).Msg("failed to append run event")
	}
}
