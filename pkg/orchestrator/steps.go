package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// StepResult is the orchestrator's view of an external build step: exit
// status and a reference to the captured output. The orchestrator never
// inspects why a step failed.
type StepResult struct {
	// ExitCode is the step's process exit status (0 on success).
	ExitCode int

	// LogPath references the captured step output.
	LogPath string

	// Duration is how long the step ran.
	Duration time.Duration
}

// StepRunner executes a single build step for a package. Implementations
// wrap the external build mechanism; the production runner shells out, test
// runners fake results.
type StepRunner interface {
	RunStep(ctx context.Context, task *BuildTask, step Step) (*StepResult, error)
}

// ExecRunner runs build steps as external processes: source extraction via
// tar, configure and build-and-install via cmake, with stdout and stderr of
// every step appended to the task's log file.
type ExecRunner struct {
	// PackageDir holds the downloaded source archives
	// (<PackageDir>/<pkg>.tgz).
	PackageDir string

	// SDERoot and InstallPrefix are exported to every step's environment
	// so package build recipes and downstream runners agree on one root.
	SDERoot       string
	InstallPrefix string

	// Jobs is the per-step make parallelism (-j).
	Jobs int
}

// RunStep dispatches one step of the fixed per-package sequence.
func (r *ExecRunner) RunStep(ctx context.Context, task *BuildTask, step Step) (*StepResult, error) {
	start := time.Now()
	var err error
	switch step {
	case StepCheck:
		err = r.check(task)
	case StepExtract:
		err = r.extract(ctx, task)
	case StepConfigure:
		err = r.configure(ctx, task)
	case StepBuild:
		err = r.build(ctx, task)
	default:
		return nil, fmt.Errorf("unknown build step: %s", step)
	}

	res := &StepResult{LogPath: task.LogPath, Duration: time.Since(start)}
	if err != nil {
		res.ExitCode = exitCode(err)
		return res, err
	}
	return res, nil
}

// check verifies the tools and directories the package's build needs.
func (r *ExecRunner) check(task *BuildTask) error {
	for _, tool := range []string{"cmake", "tar", "make"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("required tool %q not found: %w", tool, err)
		}
	}
	if err := os.MkdirAll(r.InstallPrefix, 0o755); err != nil {
		return fmt.Errorf("install prefix not writable: %w", err)
	}
	return os.MkdirAll(filepath.Dir(task.LogPath), 0o755)
}

// extract unpacks the package archive into the task's source directory.
// Re-running on an already-extracted package is a no-op, not an error.
func (r *ExecRunner) extract(ctx context.Context, task *BuildTask) error {
	if _, err := os.Stat(task.SourceDir); err == nil {
		return nil // already extracted
	}
	archive := filepath.Join(r.PackageDir, task.Package.ID+".tgz")
	if _, err := os.Stat(archive); err != nil {
		return fmt.Errorf("package archive missing: %w", err)
	}
	if err := os.MkdirAll(task.SourceDir, 0o755); err != nil {
		return err
	}
	return r.run(ctx, task, task.SourceDir,
		"tar", "xf", archive, "--strip-components", "1", "-C", task.SourceDir)
}

// configure generates the package build system in the task's build dir.
func (r *ExecRunner) configure(ctx context.Context, task *BuildTask) error {
	if err := os.MkdirAll(task.BuildDir, 0o755); err != nil {
		return err
	}
	args := append([]string{task.SourceDir}, task.ConfigureArgs...)
	return r.run(ctx, task, task.BuildDir, "cmake", args...)
}

// build compiles and installs the package.
func (r *ExecRunner) build(ctx context.Context, task *BuildTask) error {
	jobs := r.Jobs
	if jobs <= 0 {
		jobs = 1
	}
	return r.run(ctx, task, task.BuildDir,
		"cmake", "--build", ".", "--target", "install", "--", fmt.Sprintf("-j%d", jobs))
}

// run executes one external command with output appended to the task log.
func (r *ExecRunner) run(ctx context.Context, task *BuildTask, dir, name string, args ...string) error {
	logFile, err := os.OpenFile(task.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open step log: %w", err)
	}
	defer logFile.Close()

	fmt.Fprintf(logFile, "+ %s %v\n", name, args)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("SDE=%s", r.SDERoot),
		fmt.Sprintf("SDE_INSTALL=%s", r.InstallPrefix),
	)
	return cmd.Run()
}

// exitCode extracts a process exit status from an error, defaulting to 1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}
