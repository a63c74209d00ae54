// Package clean selectively reverses build state. It removes build
// directories and log files but never touches profile documents, the
// persisted configuration, or the run-history database, so a clean followed
// by a rebuild from the same profile reproduces an identical configuration.
package clean

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Scope selects what a clean removes. Both parts toggle independently.
type Scope struct {
	// BuildDir removes the per-package build directory tree.
	BuildDir bool

	// Logs removes captured build logs.
	Logs bool
}

// IsEmpty reports whether the scope selects nothing.
func (s Scope) IsEmpty() bool {
	return !s.BuildDir && !s.Logs
}

// Manager removes build artifacts for one workspace.
type Manager struct {
	buildRoot string
	logDir    string
	logger    zerolog.Logger
}

// NewManager creates a clean manager for the given workspace directories.
func NewManager(buildRoot, logDir string, logger zerolog.Logger) *Manager {
	return &Manager{
		buildRoot: buildRoot,
		logDir:    logDir,
		logger:    logger.With().Str("component", "clean").Logger(),
	}
}

// Targets returns the directories the scope would remove. Used for the
// confirmation prompt and for dry reporting.
func (m *Manager) Targets(scope Scope) []string {
	var targets []string
	if scope.BuildDir {
		targets = append(targets, m.buildRoot)
	}
	if scope.Logs {
		targets = append(targets, m.logDir)
	}
	return targets
}

// Confirm asks the operator to approve removing the scope's targets.
func (m *Manager) Confirm(scope Scope, in io.Reader, out io.Writer) (bool, error) {
	targets := m.Targets(scope)
	if len(targets) == 0 {
		return false, nil
	}
	fmt.Fprintf(out, "About to remove:\n")
	for _, t := range targets {
		fmt.Fprintf(out, "  %s\n", t)
	}
	fmt.Fprint(out, "Proceed? (y/N): ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// Clean removes the selected artifacts. Missing directories are not errors;
// cleaning an already-clean workspace is a no-op.
func (m *Manager) Clean(scope Scope) error {
	for _, target := range m.Targets(scope) {
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("remove %s: %w", target, err)
		}
		m.logger.Info().Str("path", target).Msg("removed")
	}
	return nil
}
