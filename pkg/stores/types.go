package stores

import (
	"context"
	"time"
)

// Run is the persisted record of one build run.
type Run struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Profile     string     `json:"profile"` // YAML snapshot of the configuration
	Jobs        int        `json:"jobs"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PackageResult is the persisted terminal record of one package build
// within a run.
type PackageResult struct {
	ID         int64         `json:"id"`
	RunID      string        `json:"run_id"`
	TaskID     string        `json:"task_id"`
	Package    string        `json:"package"`
	Arch       *string       `json:"arch,omitempty"`
	Status     string        `json:"status"`
	FailedStep *string       `json:"failed_step,omitempty"`
	ExitCode   int           `json:"exit_code"`
	LogPath    *string       `json:"log_path,omitempty"`
	Reason     *string       `json:"reason,omitempty"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// EventLevel represents the severity of a run event.
type EventLevel string

const (
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Event is an append-only log entry attached to a run.
type Event struct {
	ID        int64      `json:"id"`
	RunID     string     `json:"run_id"`
	TaskID    *string    `json:"task_id,omitempty"`
	Level     EventLevel `json:"level"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

// Store defines the persistence layer for build run history.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, id, status string, summary RunSummary, errMsg *string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Package result operations
	CreatePackageResult(ctx context.Context, result *PackageResult) error
	ListResultsByRun(ctx context.Context, runID string) ([]*PackageResult, error)

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	ListEventsByRun(ctx context.Context, runID string, limit, offset int) ([]*Event, error)

	// Utility
	HealthCheck(ctx context.Context) error
}

// RunSummary carries the terminal counters written when a run finishes.
type RunSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}
