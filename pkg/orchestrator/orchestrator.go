// Package orchestrator executes a build plan with a bounded worker pool.
//
// Workers pull packages from the dependency-satisfied frontier and run each
// package's four-step sequence through an external StepRunner. Workers report
// through a single results channel; only the accumulator loop inside Execute
// mutates shared run state. A failed required dependency cascades skips to
// its transitive dependents while independent subtrees keep building.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p4forge/p4forge/pkg/errdefs"
)

// DefaultGracePeriod bounds how long in-flight steps may keep running after
// an external interrupt before they are forcibly stopped.
const DefaultGracePeriod = 30 * time.Second

// TaskResult is the terminal record of one package build.
type TaskResult struct {
	// TaskID is the plan node identifier.
	TaskID string `json:"task_id"`

	// Package and Arch identify what was built.
	Package string `json:"package"`
	Arch    string `json:"arch,omitempty"`

	// Status is the terminal package status.
	Status PackageStatus `json:"status"`

	// FailedStep names the step that failed, if any.
	FailedStep Step `json:"failed_step,omitempty"`

	// ExitCode is the failing step's exit status (0 on success or skip).
	ExitCode int `json:"exit_code"`

	// LogPath references the package's captured build output.
	LogPath string `json:"log_path,omitempty"`

	// StartedAt and Duration cover the whole step sequence.
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Reason explains a skip (failed dependency, abort).
	Reason string `json:"reason,omitempty"`

	// Err is the step failure, if any.
	Err *errdefs.Error `json:"error,omitempty"`
}

// Summary counts terminal package states for one run.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Run is the record of one build plan execution.
type Run struct {
	// ID is the unique run identifier.
	ID string `json:"id"`

	// Status is the global run state.
	Status RunStatus `json:"status"`

	// StartedAt and CompletedAt bound the run.
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Results maps task IDs to their terminal records.
	Results map[string]*TaskResult `json:"results"`

	// Summary counts terminal states.
	Summary Summary `json:"summary"`
}

// Err maps the run outcome to the error contract: nil for a clean run, an
// execution-class error when packages failed, a canceled-class error when
// the run was aborted.
func (r *Run) Err() error {
	if r.Status == RunAborted {
		return errdefs.Aborted(nil).WithDetail("skipped", r.Summary.Skipped)
	}
	if r.Summary.Failed > 0 {
		first := ""
		ids := make([]string, 0, len(r.Results))
		for id := range r.Results {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if r.Results[id].Status == StatusFailed {
				first = id
				break
			}
		}
		return errdefs.StepFailed(first, "",
			fmt.Errorf("%d of %d packages failed", r.Summary.Failed, r.Summary.Total))
	}
	return nil
}

// Observer receives run lifecycle notifications. All methods are called from
// the accumulator goroutine, never concurrently.
type Observer interface {
	RunStarted(run *Run, plan *BuildPlan)
	TaskStarted(run *Run, task *BuildTask)
	TaskFinished(run *Run, task *BuildTask, result *TaskResult)
	RunFinished(run *Run)
}

// NopObserver is an Observer that ignores every notification.
type NopObserver struct{}

func (NopObserver) RunStarted(*Run, *BuildPlan)                {}
func (NopObserver) TaskStarted(*Run, *BuildTask)               {}
func (NopObserver) TaskFinished(*Run, *BuildTask, *TaskResult) {}
func (NopObserver) RunFinished(*Run)                           {}

// MultiObserver fans notifications out to several observers in order.
func MultiObserver(obs ...Observer) Observer {
	return multiObserver(obs)
}

type multiObserver []Observer

func (m multiObserver) RunStarted(run *Run, plan *BuildPlan) {
	for _, o := range m {
		o.RunStarted(run, plan)
	}
}

func (m multiObserver) TaskStarted(run *Run, task *BuildTask) {
	for _, o := range m {
		o.TaskStarted(run, task)
	}
}

func (m multiObserver) TaskFinished(run *Run, task *BuildTask, result *TaskResult) {
	for _, o := range m {
		o.TaskFinished(run, task, result)
	}
}

func (m multiObserver) RunFinished(run *Run) {
	for _, o := range m {
		o.RunFinished(run)
	}
}

// Orchestrator drives build plans through a bounded worker pool.
type Orchestrator struct {
	runner   StepRunner
	observer Observer
	logger   zerolog.Logger
	jobs     int
	grace    time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver attaches a run observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithGracePeriod overrides the post-interrupt grace period.
func WithGracePeriod(d time.Duration) Option {
	return func(o *Orchestrator) { o.grace = d }
}

// New creates an orchestrator with the given step runner and job count.
func New(runner StepRunner, jobs int, logger zerolog.Logger, opts ...Option) *Orchestrator {
	if jobs <= 0 {
		jobs = 4
	}
	o := &Orchestrator{
		runner:   runner,
		observer: NopObserver{},
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		jobs:     jobs,
		grace:    DefaultGracePeriod,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// taskState is the accumulator's bookkeeping for one task.
type taskState struct {
	task    *BuildTask
	status  PackageStatus
	waiting int // unfinished edges (required + optional)

	// reqDependents and optDependents are reverse edges, split by kind:
	// only required edges cascade skips.
	reqDependents []string
	optDependents []string
}

// Execute runs the plan to completion or external cancellation and returns
// the run record. The returned error mirrors run.Err().
func (o *Orchestrator) Execute(ctx context.Context, plan *BuildPlan) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunPlanning,
		StartedAt: time.Now(),
		Results:   make(map[string]*TaskResult, len(plan.Tasks)),
		Summary:   Summary{Total: len(plan.Tasks)},
	}

	states := make(map[string]*taskState, len(plan.Tasks))
	for _, t := range plan.Tasks {
		states[t.ID] = &taskState{
			task:    t,
			status:  StatusPending,
			waiting: len(t.Requires) + len(t.Optional),
		}
	}
	for _, t := range plan.Tasks {
		for _, dep := range t.Requires {
			states[dep].reqDependents = append(states[dep].reqDependents, t.ID)
		}
		for _, dep := range t.Optional {
			states[dep].optDependents = append(states[dep].optDependents, t.ID)
		}
	}

	run.Status = RunExecuting
	o.observer.RunStarted(run, plan)
	o.logger.Info().Str("run", run.ID).Int("packages", len(plan.Tasks)).
		Int("jobs", o.jobs).Msg("executing build plan")

	// The step context outlives ctx by the grace period so interrupted
	// steps can finish cleanly before being forcibly stopped.
	stepCtx, stopSteps := context.WithCancel(context.Background())
	defer stopSteps()
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-watchDone:
		case <-ctx.Done():
			timer := time.NewTimer(o.grace)
			defer timer.Stop()
			select {
			case <-timer.C:
				stopSteps()
			case <-watchDone:
			}
		}
	}()

	taskCh := make(chan *BuildTask, len(plan.Tasks))
	resultCh := make(chan *TaskResult, len(plan.Tasks))
	for i := 0; i < o.jobs; i++ {
		go o.worker(ctx, stepCtx, taskCh, resultCh)
	}
	defer close(taskCh)

	// Deterministic starting enqueue order: plan order, dependencies first.
	dispatched := 0
	for _, t := range plan.Tasks {
		if states[t.ID].waiting == 0 {
			states[t.ID].status = StatusRunning
			o.observer.TaskStarted(run, t)
			taskCh <- t
			dispatched++
		}
	}

	aborted := false
	terminal := 0
	done := ctx.Done()

	// External interrupt: everything not yet dispatched is skipped;
	// in-flight tasks drain through the results channel below.
	abort := func() {
		aborted = true
		done = nil
		for _, t := range plan.Tasks {
			st := states[t.ID]
			if st.status == StatusPending {
				terminal += o.finish(run, st, o.skippedResult(t, "run aborted"))
			}
		}
	}

	for terminal < len(plan.Tasks) {
		// An interrupt takes priority over queued results, so a result
		// produced after cancellation can never complete the run.
		if done != nil {
			select {
			case <-done:
				abort()
			default:
			}
		}

		select {
		case <-done:
			abort()
		case res := <-resultCh:
			st := states[res.TaskID]
			terminal += o.finish(run, st, res)

			// Notify dependents of the terminal state.
			failedOrSkipped := res.Status == StatusFailed || res.Status == StatusSkipped
			for _, depID := range st.reqDependents {
				dep := states[depID]
				if !dep.status.IsTerminal() && dep.status != StatusRunning {
					if failedOrSkipped {
						terminal += o.cascadeSkip(run, states, dep, res.TaskID)
					} else {
						dep.waiting--
					}
				}
			}
			for _, depID := range st.optDependents {
				dep := states[depID]
				if !dep.status.IsTerminal() && dep.status != StatusRunning {
					// Optional edges only order; failure does not cascade.
					dep.waiting--
				}
			}

			if !aborted {
				for _, t := range plan.Tasks {
					st := states[t.ID]
					if st.status == StatusPending && st.waiting == 0 {
						st.status = StatusRunning
						o.observer.TaskStarted(run, t)
						taskCh <- t
					}
				}
			}
		}
	}

	now := time.Now()
	run.CompletedAt = &now
	if aborted {
		run.Status = RunAborted
	} else {
		run.Status = RunCompleted
	}
	o.observer.RunFinished(run)
	o.logger.Info().Str("run", run.ID).Str("status", string(run.Status)).
		Int("succeeded", run.Summary.Succeeded).
		Int("failed", run.Summary.Failed).
		Int("skipped", run.Summary.Skipped).
		Msg("build plan finished")

	return run, run.Err()
}

// finish records a terminal result and returns 1 for the terminal counter.
func (o *Orchestrator) finish(run *Run, st *taskState, res *TaskResult) int {
	st.status = res.Status
	run.Results[res.TaskID] = res
	switch res.Status {
	case StatusSucceeded:
		run.Summary.Succeeded++
	case StatusFailed:
		run.Summary.Failed++
	case StatusSkipped:
		run.Summary.Skipped++
	}
	o.observer.TaskFinished(run, st.task, res)
	return 1
}

// cascadeSkip marks a task and its transitive required dependents skipped.
// Returns the number of tasks newly made terminal.
func (o *Orchestrator) cascadeSkip(run *Run, states map[string]*taskState, st *taskState, cause string) int {
	if st.status.IsTerminal() || st.status == StatusRunning {
		return 0
	}
	count := o.finish(run, st, o.skippedResult(st.task, fmt.Sprintf("dependency %s did not succeed", cause)))
	for _, depID := range st.reqDependents {
		count += o.cascadeSkip(run, states, states[depID], st.task.ID)
	}
	for _, depID := range st.optDependents {
		dep := states[depID]
		if !dep.status.IsTerminal() && dep.status != StatusRunning {
			dep.waiting--
		}
	}
	return count
}

// worker drains the task channel, running each task's full step sequence.
func (o *Orchestrator) worker(ctx, stepCtx context.Context, taskCh <-chan *BuildTask, resultCh chan<- *TaskResult) {
	for task := range taskCh {
		select {
		case <-ctx.Done():
			resultCh <- o.skippedResult(task, "run aborted")
			continue
		default:
		}
		resultCh <- o.runTask(ctx, stepCtx, task)
	}
}

// runTask executes the four build steps strictly in sequence. The first
// failing step terminates the task; the orchestrator records only exit
// status and the log reference. An external interrupt lets the current step
// finish (bounded by stepCtx's grace period) but starts no further steps,
// so an interrupted task is never marked succeeded.
func (o *Orchestrator) runTask(ctx, stepCtx context.Context, task *BuildTask) *TaskResult {
	res := &TaskResult{
		TaskID:    task.ID,
		Package:   task.Package.ID,
		Arch:      string(task.Arch),
		Status:    StatusSucceeded,
		LogPath:   task.LogPath,
		StartedAt: time.Now(),
	}

	for _, step := range Steps() {
		select {
		case <-ctx.Done():
			res.Status = StatusSkipped
			res.Reason = "run aborted"
			res.Duration = time.Since(res.StartedAt)
			return res
		default:
		}

		o.logger.Debug().Str("task", task.ID).Str("step", string(step)).Msg("running step")
		stepRes, err := o.runner.RunStep(stepCtx, task, step)
		if stepRes != nil && stepRes.LogPath != "" {
			res.LogPath = stepRes.LogPath
		}
		if err != nil || (stepRes != nil && stepRes.ExitCode != 0) {
			res.Status = StatusFailed
			res.FailedStep = step
			if stepRes != nil {
				res.ExitCode = stepRes.ExitCode
			} else {
				res.ExitCode = 1
			}
			res.Err = errdefs.StepFailed(task.ID, string(step), err)
			break
		}
	}

	res.Duration = time.Since(res.StartedAt)
	return res
}

// skippedResult builds the terminal record for a task that never ran.
func (o *Orchestrator) skippedResult(task *BuildTask, reason string) *TaskResult {
	return &TaskResult{
		TaskID:    task.ID,
		Package:   task.Package.ID,
		Arch:      string(task.Arch),
		Status:    StatusSkipped,
		StartedAt: time.Now(),
		Reason:    reason,
	}
}
