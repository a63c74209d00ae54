package commands

import (
	"os"

	"github.com/p4forge/p4forge/pkg/config"
	"github.com/p4forge/p4forge/pkg/graph"
	"github.com/p4forge/p4forge/pkg/orchestrator"
)

// buildPlan resolves the dependency graph for the configuration and
// annotates it into an ordered build plan for this workspace.
func buildPlan(a *app, cfg config.Configuration) (*orchestrator.BuildPlan, error) {
	gp, err := graph.NewResolver(a.registry).Resolve(cfg.Packages, cfg.Architectures)
	if err != nil {
		return nil, err
	}
	return orchestrator.NewBuildPlan(gp, cfg, orchestrator.Paths{
		SourceRoot: a.settings.SourceRoot,
		BuildRoot:  a.settings.BuildRoot,
		LogDir:     a.settings.LogDir,
	}), nil
}

// newExecRunner builds the production step runner for this workspace.
func newExecRunner(a *app, cfg config.Configuration, jobs int) *orchestrator.ExecRunner {
	return &orchestrator.ExecRunner{
		PackageDir:    a.settings.PackageDir,
		SDERoot:       a.settings.SDERoot,
		InstallPrefix: cfg.InstallPrefix,
		Jobs:          jobs,
	}
}

// ensureWorkspaceDirs creates the workspace directories a build writes to.
func ensureWorkspaceDirs(a *app) error {
	for _, dir := range []string{
		a.settings.SourceRoot,
		a.settings.BuildRoot,
		a.settings.LogDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
