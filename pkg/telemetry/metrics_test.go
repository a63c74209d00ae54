package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewMetrics_DisabledIsNoOp(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	// Every record call must be safe on a disabled collector.
	m.RecordRunStarted()
	m.RecordTaskStarted()
	m.RecordTaskFinished("bf-drivers", "succeeded", time.Second, true)
	m.RecordRunCompleted("completed", time.Minute)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	if rec.Code != 404 {
		t.Errorf("Expected 404 from disabled handler, got %d", rec.Code)
	}
}

func TestMetrics_HandlerExposesRecordedSeries(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "p4forge"})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m.RecordRunStarted()
	m.RecordTaskStarted()
	m.RecordTaskFinished("bf-drivers", "succeeded", 30*time.Second, true)
	m.RecordRunCompleted("completed", time.Minute)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"p4forge_runs_started_total 1",
		`p4forge_runs_completed_total{status="completed"} 1`,
		`p4forge_package_builds_total{package="bf-drivers",status="succeeded"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}
}

func TestMetrics_SkippedTaskDoesNotDrainGauge(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "p4forge"})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m.RecordTaskStarted()
	// A skipped task finishes without ever starting.
	m.RecordTaskFinished("p4-examples", "skipped", 0, false)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "p4forge_running_tasks 1") {
		t.Error("Expected running task gauge to stay at 1 after a skip")
	}
}
