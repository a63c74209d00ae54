package errdefs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error_IncludesContext(t *testing.T) {
	err := StepFailed("bf-drivers", "configure", fmt.Errorf("exit status 2"))

	msg := err.Error()
	for _, want := range []string{CodeStepFailed, "bf-drivers", "configure", "exit status 2"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected message to contain %q, got %q", want, msg)
		}
	}
}

func TestError_Is_MatchesByClassAndCode(t *testing.T) {
	wrapped := fmt.Errorf("resolve selection: %w", UnknownPackage("bf-warp"))

	if !errors.Is(wrapped, UnknownPackage("")) {
		t.Error("Expected wrapped error to match an unknown-package sentinel")
	}
	if errors.Is(wrapped, CyclicDependency(nil)) {
		t.Error("Unknown-package error must not match a cycle sentinel")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	err := StepFailed("bf-utils", "build", cause)

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the underlying cause")
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"step failure", StepFailed("p", "build", nil), ExitFailed},
		{"unknown package", UnknownPackage("p"), ExitPlanning},
		{"invalid configuration", InvalidConfiguration("rule", nil), ExitPlanning},
		{"cycle", CyclicDependency([]string{"a", "b"}), ExitPlanning},
		{"aborted", Aborted(nil), ExitAborted},
		{"wrapped step failure", fmt.Errorf("run: %w", StepFailed("p", "build", nil)), ExitFailed},
		{"unclassified", fmt.Errorf("plain"), ExitPlanning},
	}
	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Errorf("%s: expected exit code %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestCycleMembers(t *testing.T) {
	members := []string{"a", "b", "c"}
	err := fmt.Errorf("plan: %w", CyclicDependency(members))

	got := CycleMembers(err)
	if len(got) != len(members) {
		t.Fatalf("Expected members %v, got %v", members, got)
	}
	for i := range members {
		if got[i] != members[i] {
			t.Errorf("Member %d: expected %s, got %s", i, members[i], got[i])
		}
	}

	if CycleMembers(UnknownPackage("a")) != nil {
		t.Error("Expected nil members for a non-cycle error")
	}
	if CycleMembers(nil) != nil {
		t.Error("Expected nil members for nil error")
	}
}

func TestClassPredicates(t *testing.T) {
	if !IsPlanning(InvalidConfiguration("rule", nil)) {
		t.Error("InvalidConfiguration must be a planning error")
	}
	if !IsStepFailure(StepFailed("p", "check", nil)) {
		t.Error("StepFailed must be a step failure")
	}
	if !IsAborted(Aborted(nil)) {
		t.Error("Aborted must be a canceled error")
	}
	if IsPlanning(StepFailed("p", "check", nil)) {
		t.Error("StepFailed must not be a planning error")
	}
}

func TestError_WithDetail(t *testing.T) {
	err := UnsupportedArchitecture("switch-p4-16", "tofino3")

	if err.Details["architecture"] != "tofino3" {
		t.Errorf("Expected architecture detail, got %v", err.Details)
	}
	if err.Package != "switch-p4-16" {
		t.Errorf("Expected package attribution, got %q", err.Package)
	}
}
