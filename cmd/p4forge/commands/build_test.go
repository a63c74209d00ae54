package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/orchestrator"
)

func TestPrintSummary_ListsTasksInPlanOrder(t *testing.T) {
	plan := &orchestrator.BuildPlan{
		Tasks: []*orchestrator.BuildTask{
			{ID: "bf-syslibs"},
			{ID: "bf-drivers"},
			{ID: "bf-platforms"},
		},
	}
	run := &orchestrator.Run{
		Results: map[string]*orchestrator.TaskResult{
			"bf-syslibs": {
				TaskID:   "bf-syslibs",
				Status:   orchestrator.StatusSucceeded,
				LogPath:  "/sde/logs/bf-syslibs.log",
				Duration: 3 * time.Second,
			},
			"bf-drivers": {
				TaskID:     "bf-drivers",
				Status:     orchestrator.StatusFailed,
				FailedStep: orchestrator.StepBuild,
				LogPath:    "/sde/logs/bf-drivers.log",
				Duration:   time.Second,
			},
			"bf-platforms": {
				TaskID: "bf-platforms",
				Status: orchestrator.StatusSkipped,
				Reason: "dependency bf-drivers did not succeed",
			},
		},
		Summary: orchestrator.Summary{Total: 3, Succeeded: 1, Failed: 1, Skipped: 1},
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	printSummary(cmd, plan, run)

	got := out.String()
	for _, want := range []string{
		"bf-syslibs", "succeeded", "/sde/logs/bf-syslibs.log",
		"bf-drivers", "failed",
		"bf-platforms", "skipped", "dependency bf-drivers did not succeed",
		"1 succeeded, 1 failed, 1 skipped (of 3)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary missing %q:\n%s", want, got)
		}
	}

	// Rows follow plan order, not map iteration order.
	if strings.Index(got, "bf-syslibs") > strings.Index(got, "bf-drivers") ||
		strings.Index(got, "bf-drivers") > strings.Index(got, "bf-platforms") {
		t.Errorf("Expected rows in plan order:\n%s", got)
	}
}

func TestPrintSummary_OmitsTasksWithoutResults(t *testing.T) {
	plan := &orchestrator.BuildPlan{
		Tasks: []*orchestrator.BuildTask{{ID: "bf-utils"}},
	}
	run := &orchestrator.Run{Results: map[string]*orchestrator.TaskResult{}}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	printSummary(cmd, plan, run)

	if strings.Contains(out.String(), "bf-utils") {
		t.Errorf("Expected no row for a task without a result:\n%s", out.String())
	}
}
