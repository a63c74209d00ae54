package orchestrator

import "fmt"

// PackageStatus is the per-package build state, owned exclusively by the
// orchestrator's accumulator during a run.
type PackageStatus string

const (
	// StatusPending means the package is waiting for its dependencies.
	StatusPending PackageStatus = "pending"

	// StatusRunning means a worker is executing the package's steps.
	StatusRunning PackageStatus = "running"

	// StatusSucceeded means all four build steps completed.
	StatusSucceeded PackageStatus = "succeeded"

	// StatusFailed means a build step returned non-zero.
	StatusFailed PackageStatus = "failed"

	// StatusSkipped means a required dependency failed, or the run was
	// aborted before the package started.
	StatusSkipped PackageStatus = "skipped"
)

// IsTerminal reports whether the status is final.
func (s PackageStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// Validate checks the status value.
func (s PackageStatus) Validate() error {
	switch s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed, StatusSkipped:
		return nil
	default:
		return fmt.Errorf("invalid package status: %s", s)
	}
}

// RunStatus is the global state of one build run.
type RunStatus string

const (
	// RunPlanning means the plan is being resolved; no step has run.
	RunPlanning RunStatus = "planning"

	// RunExecuting means workers are draining the plan.
	RunExecuting RunStatus = "executing"

	// RunCompleted means every package reached a terminal state. A
	// completed run may still carry failures.
	RunCompleted RunStatus = "completed"

	// RunAborted means an external interrupt stopped the run.
	RunAborted RunStatus = "aborted"
)

// IsTerminal reports whether the run reached a final state.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunAborted
}

// Step is one stage of a package's build sequence. Steps execute strictly in
// order within a package.
type Step string

const (
	// StepCheck verifies system capabilities for the package.
	StepCheck Step = "check"

	// StepExtract unpacks package sources. Idempotent: re-running on an
	// already-extracted package is a no-op.
	StepExtract Step = "extract"

	// StepConfigure generates the package build system with the resolved
	// build type, flags, and install paths.
	StepConfigure Step = "configure"

	// StepBuild compiles and installs the package.
	StepBuild Step = "build"
)

// Steps returns the fixed per-package step sequence.
func Steps() []Step {
	return []Step{StepCheck, StepExtract, StepConfigure, StepBuild}
}
