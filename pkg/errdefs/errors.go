// Package errdefs defines the classified error type shared by every p4forge
// component, together with the fixed error codes of the build pipeline.
//
// Errors fall into three classes. Planning errors (unknown package, dependency
// cycle, invalid configuration, ...) surface before any build step runs and
// halt the invocation. Execution errors are per-package build step failures;
// they are collected rather than aborting independent parts of the build.
// Canceled errors mark runs stopped by an external interrupt.
package errdefs

import (
	"errors"
	"fmt"
)

// Class partitions errors by the pipeline phase they belong to.
type Class string

const (
	// ClassPlanning marks errors raised while resolving packages,
	// dependencies, or configuration. No build step has run yet.
	ClassPlanning Class = "planning"

	// ClassExecution marks per-package build step failures.
	ClassExecution Class = "execution"

	// ClassCanceled marks runs aborted by an external interrupt.
	ClassCanceled Class = "canceled"
)

// Build error codes.
const (
	CodeUnknownPackage       = "UNKNOWN_PACKAGE"
	CodeCyclicDependency     = "CYCLIC_DEPENDENCY"
	CodeUnsupportedArch      = "UNSUPPORTED_ARCHITECTURE"
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeUnrecognizedOption   = "UNRECOGNIZED_OPTION"
	CodeStepFailed           = "STEP_FAILED"
	CodeAborted              = "ABORTED"
	CodeInternal             = "INTERNAL_ERROR"
)

// Process exit codes, one per worst-outcome category.
const (
	ExitOK       = 0
	ExitFailed   = 1 // one or more packages failed to build
	ExitPlanning = 2 // configuration or resolution rejected before execution
	ExitAborted  = 130
)

// Error is a classified error with package and step context.
type Error struct {
	// Class is the pipeline phase classification.
	Class Class `json:"class"`

	// Code identifies the failure for programmatic handling.
	Code string `json:"code"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Package is the package identifier the error is attributed to, if any.
	Package string `json:"package,omitempty"`

	// Step is the build step that failed, if any.
	Step string `json:"step,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`

	// Details carries additional context, such as cycle members.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Package != "" && e.Step != "" {
		msg = fmt.Sprintf("%s (package=%s, step=%s)", msg, e.Package, e.Step)
	} else if e.Package != "" {
		msg = fmt.Sprintf("%s (package=%s)", msg, e.Package)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by class and code so sentinel comparison works with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// WithPackage attributes the error to a package.
func (e *Error) WithPackage(pkg string) *Error {
	e.Package = pkg
	return e
}

// WithStep attributes the error to a build step.
func (e *Error) WithStep(step string) *Error {
	e.Step = step
	return e
}

// WithDetail attaches a context value to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(class Class, code, message string, err error) *Error {
	return &Error{Class: class, Code: code, Message: message, Err: err}
}

// UnknownPackage reports a package identifier missing from the registry.
func UnknownPackage(id string) *Error {
	return newError(ClassPlanning, CodeUnknownPackage,
		fmt.Sprintf("unknown package %q", id), nil).WithPackage(id)
}

// CyclicDependency reports a dependency cycle. Members holds the identifiers
// forming the cycle, in walk order.
func CyclicDependency(members []string) *Error {
	return newError(ClassPlanning, CodeCyclicDependency,
		"dependency cycle detected", nil).WithDetail("cycle", members)
}

// UnsupportedArchitecture reports a package with no variant for a requested
// target architecture.
func UnsupportedArchitecture(pkg, arch string) *Error {
	return newError(ClassPlanning, CodeUnsupportedArch,
		fmt.Sprintf("package %q has no variant for architecture %q", pkg, arch), nil).
		WithPackage(pkg).WithDetail("architecture", arch)
}

// InvalidConfiguration reports a violated configuration rule.
func InvalidConfiguration(rule string, err error) *Error {
	return newError(ClassPlanning, CodeInvalidConfiguration, rule, err)
}

// UnrecognizedOption reports an unknown field in a profile document.
func UnrecognizedOption(message string, err error) *Error {
	return newError(ClassPlanning, CodeUnrecognizedOption, message, err)
}

// StepFailed reports a non-zero build step for a package.
func StepFailed(pkg, step string, err error) *Error {
	return newError(ClassExecution, CodeStepFailed, "build step failed", err).
		WithPackage(pkg).WithStep(step)
}

// Aborted reports an externally cancelled run.
func Aborted(err error) *Error {
	return newError(ClassCanceled, CodeAborted, "run aborted", err)
}

// Internal reports an invariant violation inside the orchestrator.
func Internal(message string, err error) *Error {
	return newError(ClassPlanning, CodeInternal, message, err)
}

// CycleMembers extracts the cycle member list from a CyclicDependency error,
// or nil if the error is of another kind.
func CycleMembers(err error) []string {
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeCyclicDependency {
		return nil
	}
	members, _ := e.Details["cycle"].([]string)
	return members
}

// IsPlanning reports whether the error belongs to the planning phase.
func IsPlanning(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Class == ClassPlanning
}

// IsStepFailure reports whether the error is a per-package step failure.
func IsStepFailure(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeStepFailed
}

// IsAborted reports whether the error marks external cancellation.
func IsAborted(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Class == ClassCanceled
}

// ExitCode maps an error to the process exit code contract: planning errors
// exit 2, step failures exit 1, aborted runs exit 130. Unclassified errors
// count as planning failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var e *Error
	if !errors.As(err, &e) {
		return ExitPlanning
	}
	switch e.Class {
	case ClassExecution:
		return ExitFailed
	case ClassCanceled:
		return ExitAborted
	default:
		return ExitPlanning
	}
}
