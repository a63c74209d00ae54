package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/p4forge/p4forge/pkg/errdefs"
	"github.com/p4forge/p4forge/pkg/registry"
)

// fakeRunner scripts step outcomes per task and records every step it runs.
type fakeRunner struct {
	mu    sync.Mutex
	fail  map[string]Step // task ID -> step that fails
	steps []string        // "<task>:<step>" in observed order
}

func (f *fakeRunner) RunStep(_ context.Context, task *BuildTask, step Step) (*StepResult, error) {
	f.mu.Lock()
	f.steps = append(f.steps, task.ID+":"+string(step))
	failStep, scripted := f.fail[task.ID]
	f.mu.Unlock()

	if scripted && failStep == step {
		return &StepResult{ExitCode: 2}, fmt.Errorf("scripted failure")
	}
	return &StepResult{LogPath: task.LogPath}, nil
}

func (f *fakeRunner) ranStep(taskID string, step Step) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.steps {
		if s == taskID+":"+string(step) {
			return i
		}
	}
	return -1
}

func testTask(id string, requires, optional []string) *BuildTask {
	return &BuildTask{
		ID:       id,
		Package:  registry.Package{ID: id},
		Requires: requires,
		Optional: optional,
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestOrchestrator_Execute_AllSucceed(t *testing.T) {
	plan := &BuildPlan{Tasks: []*BuildTask{
		testTask("a", nil, nil),
		testTask("b", []string{"a"}, nil),
		testTask("c", []string{"b"}, nil),
	}}
	runner := &fakeRunner{}

	run, err := New(runner, 2, testLogger()).Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if run.Status != RunCompleted {
		t.Errorf("Expected status %s, got %s", RunCompleted, run.Status)
	}
	if run.Summary != (Summary{Total: 3, Succeeded: 3}) {
		t.Errorf("Unexpected summary: %+v", run.Summary)
	}
	if run.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set")
	}
	for _, id := range []string{"a", "b", "c"} {
		res, ok := run.Results[id]
		if !ok {
			t.Fatalf("Missing result for %s", id)
		}
		if res.Status != StatusSucceeded {
			t.Errorf("Expected %s succeeded, got %s", id, res.Status)
		}
	}
}

func TestOrchestrator_Execute_StepsRunInOrderAndStopOnFailure(t *testing.T) {
	plan := &BuildPlan{Tasks: []*BuildTask{testTask("a", nil, nil)}}
	runner := &fakeRunner{fail: map[string]Step{"a": StepConfigure}}

	run, err := New(runner, 1, testLogger()).Execute(context.Background(), plan)
	if err == nil {
		t.Fatal("Expected error for failed run, got nil")
	}

	want := []string{"a:check", "a:extract", "a:configure"}
	runner.mu.Lock()
	got := append([]string(nil), runner.steps...)
	runner.mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("Expected steps %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Step %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	res := run.Results["a"]
	if res.Status != StatusFailed {
		t.Errorf("Expected status failed, got %s", res.Status)
	}
	if res.FailedStep != StepConfigure {
		t.Errorf("Expected failed step %s, got %s", StepConfigure, res.FailedStep)
	}
	if res.ExitCode != 2 {
		t.Errorf("Expected exit code 2, got %d", res.ExitCode)
	}
	if res.Err == nil || res.Err.Code != errdefs.CodeStepFailed {
		t.Errorf("Expected step-failed error on result, got %v", res.Err)
	}
}

func TestOrchestrator_Execute_FailureCascadesToRequiredDependents(t *testing.T) {
	// b fails; c and d depend on it transitively; e is independent and
	// must still build.
	plan := &BuildPlan{Tasks: []*BuildTask{
		testTask("a", nil, nil),
		testTask("b", []string{"a"}, nil),
		testTask("c", []string{"b"}, nil),
		testTask("d", []string{"c"}, nil),
		testTask("e", []string{"a"}, nil),
	}}
	runner := &fakeRunner{fail: map[string]Step{"b": StepBuild}}

	run, err := New(runner, 2, testLogger()).Execute(context.Background(), plan)

	if run.Status != RunCompleted {
		t.Errorf("Partial failure must complete the run, got status %s", run.Status)
	}
	if run.Summary != (Summary{Total: 5, Succeeded: 2, Failed: 1, Skipped: 2}) {
		t.Errorf("Unexpected summary: %+v", run.Summary)
	}
	if got := run.Results["c"].Reason; got != "dependency b did not succeed" {
		t.Errorf("Unexpected skip reason for c: %q", got)
	}
	if got := run.Results["d"].Reason; got != "dependency c did not succeed" {
		t.Errorf("Unexpected skip reason for d: %q", got)
	}
	if run.Results["e"].Status != StatusSucceeded {
		t.Errorf("Independent package e must build, got %s", run.Results["e"].Status)
	}

	var e *errdefs.Error
	if !errors.As(err, &e) || e.Code != errdefs.CodeStepFailed {
		t.Fatalf("Expected step-failed run error, got %v", err)
	}
	if code := errdefs.ExitCode(err); code != 1 {
		t.Errorf("Expected exit code 1 for package failures, got %d", code)
	}
}

func TestOrchestrator_Execute_OptionalDependencyFailureDoesNotCascade(t *testing.T) {
	plan := &BuildPlan{Tasks: []*BuildTask{
		testTask("a", nil, nil),
		testTask("b", nil, []string{"a"}),
	}}
	runner := &fakeRunner{fail: map[string]Step{"a": StepCheck}}

	run, _ := New(runner, 1, testLogger()).Execute(context.Background(), plan)

	if run.Results["b"].Status != StatusSucceeded {
		t.Errorf("Optional dependency failure must not skip b, got %s", run.Results["b"].Status)
	}
	// The optional edge still orders: b runs only after a is terminal.
	if aIdx, bIdx := runner.ranStep("a", StepCheck), runner.ranStep("b", StepCheck); aIdx < 0 || bIdx < 0 || bIdx < aIdx {
		t.Errorf("Expected a to run before b, got step order %v", runner.steps)
	}
}

func TestOrchestrator_Execute_DependencyOrdering(t *testing.T) {
	plan := &BuildPlan{Tasks: []*BuildTask{
		testTask("a", nil, nil),
		testTask("b", []string{"a"}, nil),
	}}
	runner := &fakeRunner{}

	if _, err := New(runner, 4, testLogger()).Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	aBuild := runner.ranStep("a", StepBuild)
	bCheck := runner.ranStep("b", StepCheck)
	if aBuild < 0 || bCheck < 0 || bCheck < aBuild {
		t.Errorf("b must not start before a finishes, got step order %v", runner.steps)
	}
}

// abortRunner cancels the run while the first task is mid-build, then waits
// for the orchestrator to stop it via the step context.
type abortRunner struct {
	cancel context.CancelFunc
}

func (r *abortRunner) RunStep(ctx context.Context, task *BuildTask, step Step) (*StepResult, error) {
	if step == StepBuild {
		r.cancel()
		<-ctx.Done()
		return &StepResult{ExitCode: 1}, ctx.Err()
	}
	return &StepResult{}, nil
}

func TestOrchestrator_Execute_AbortSkipsPendingTasks(t *testing.T) {
	plan := &BuildPlan{Tasks: []*BuildTask{
		testTask("a", nil, nil),
		testTask("b", []string{"a"}, nil),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &abortRunner{cancel: cancel}

	orch := New(runner, 1, testLogger(), WithGracePeriod(10*time.Millisecond))
	run, err := orch.Execute(ctx, plan)

	if run.Status != RunAborted {
		t.Fatalf("Expected status %s, got %s", RunAborted, run.Status)
	}
	if run.Results["b"].Status != StatusSkipped || run.Results["b"].Reason != "run aborted" {
		t.Errorf("Pending task must be skipped on abort, got %+v", run.Results["b"])
	}
	if run.Results["a"].Status != StatusFailed {
		t.Errorf("Interrupted task must be failed, got %s", run.Results["a"].Status)
	}

	var e *errdefs.Error
	if !errors.As(err, &e) || e.Code != errdefs.CodeAborted {
		t.Fatalf("Expected aborted error, got %v", err)
	}
	if code := errdefs.ExitCode(err); code != 130 {
		t.Errorf("Expected exit code 130 for aborted run, got %d", code)
	}
}

// interruptRunner cancels the run during the first task's check step and
// records every step it is asked to run.
type interruptRunner struct {
	cancel context.CancelFunc
	mu     sync.Mutex
	steps  []Step
}

func (r *interruptRunner) RunStep(_ context.Context, _ *BuildTask, step Step) (*StepResult, error) {
	r.mu.Lock()
	r.steps = append(r.steps, step)
	r.mu.Unlock()
	if step == StepCheck {
		r.cancel()
	}
	return &StepResult{}, nil
}

func TestOrchestrator_Execute_InterruptStartsNoFurtherSteps(t *testing.T) {
	plan := &BuildPlan{Tasks: []*BuildTask{
		testTask("a", nil, nil),
		testTask("b", []string{"a"}, nil),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &interruptRunner{cancel: cancel}

	run, err := New(runner, 1, testLogger()).Execute(ctx, plan)

	if run.Status != RunAborted {
		t.Fatalf("Expected status %s, got %s", RunAborted, run.Status)
	}
	// The in-flight step finishes; nothing after it starts.
	runner.mu.Lock()
	steps := append([]Step(nil), runner.steps...)
	runner.mu.Unlock()
	if len(steps) != 1 || steps[0] != StepCheck {
		t.Errorf("Expected only the in-flight check step, got %v", steps)
	}

	a := run.Results["a"]
	if a.Status == StatusSucceeded {
		t.Errorf("Interrupted task must not be marked succeeded, got %s", a.Status)
	}
	if a.Status != StatusSkipped || a.Reason != "run aborted" {
		t.Errorf("Expected interrupted task skipped by abort, got %+v", a)
	}
	if run.Results["b"].Status != StatusSkipped {
		t.Errorf("Pending task must be skipped, got %s", run.Results["b"].Status)
	}
	if !errdefs.IsAborted(err) {
		t.Errorf("Expected aborted run error, got %v", err)
	}
}

// countingObserver tallies lifecycle notifications.
type countingObserver struct {
	runStarted, taskStarted, taskFinished, runFinished int
}

func (o *countingObserver) RunStarted(*Run, *BuildPlan)                { o.runStarted++ }
func (o *countingObserver) TaskStarted(*Run, *BuildTask)               { o.taskStarted++ }
func (o *countingObserver) TaskFinished(*Run, *BuildTask, *TaskResult) { o.taskFinished++ }
func (o *countingObserver) RunFinished(*Run)                           { o.runFinished++ }

func TestOrchestrator_Execute_MultiObserverFansOut(t *testing.T) {
	plan := &BuildPlan{Tasks: []*BuildTask{
		testTask("a", nil, nil),
		testTask("b", []string{"a"}, nil),
	}}
	first := &countingObserver{}
	second := &countingObserver{}

	orch := New(&fakeRunner{}, 2, testLogger(), WithObserver(MultiObserver(first, second)))
	if _, err := orch.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	for name, obs := range map[string]*countingObserver{"first": first, "second": second} {
		if obs.runStarted != 1 || obs.runFinished != 1 {
			t.Errorf("%s observer: expected one run start/finish, got %d/%d",
				name, obs.runStarted, obs.runFinished)
		}
		if obs.taskStarted != 2 || obs.taskFinished != 2 {
			t.Errorf("%s observer: expected two task starts/finishes, got %d/%d",
				name, obs.taskStarted, obs.taskFinished)
		}
	}
}

func TestRun_Err_CleanRunIsNil(t *testing.T) {
	run := &Run{Status: RunCompleted, Summary: Summary{Total: 2, Succeeded: 2}}
	if err := run.Err(); err != nil {
		t.Errorf("Expected nil error for clean run, got %v", err)
	}
}
