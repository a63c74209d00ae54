package orchestrator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/p4forge/p4forge/pkg/config"
	"github.com/p4forge/p4forge/pkg/graph"
	"github.com/p4forge/p4forge/pkg/registry"
)

// Paths locates the workspace directories a build writes to.
type Paths struct {
	// SourceRoot holds extracted package sources.
	SourceRoot string

	// BuildRoot holds per-package build directories.
	BuildRoot string

	// LogDir holds per-package build logs.
	LogDir string
}

// BuildTask is one package build annotated with the configuration options
// relevant to it.
type BuildTask struct {
	// ID is the plan node identifier (package, or package@arch).
	ID string

	// Package is the catalog entry being built.
	Package registry.Package

	// Arch is set for per-architecture variants.
	Arch registry.Architecture

	// Requires lists task IDs that must succeed first.
	Requires []string

	// Optional lists task IDs that order this task without a success
	// requirement.
	Optional []string

	// BuildType, InstallPrefix, and ConfigureArgs carry the resolved
	// options threaded into the package's steps.
	BuildType     config.BuildType
	InstallPrefix string
	ConfigureArgs []string

	// SourceDir, BuildDir, and LogPath are the task's private locations
	// under the workspace roots. Each task writes only to its own paths.
	SourceDir string
	BuildDir  string
	LogPath   string
}

// BuildPlan is the ordered task sequence consumed once by a run.
type BuildPlan struct {
	// Tasks in deterministic enqueue order.
	Tasks []*BuildTask

	// Configuration is the snapshot the plan was derived from.
	Configuration config.Configuration
}

// NewBuildPlan annotates a resolved graph plan with per-package options and
// workspace paths.
func NewBuildPlan(gp *graph.Plan, cfg config.Configuration, paths Paths) *BuildPlan {
	plan := &BuildPlan{Configuration: cfg}
	for _, node := range gp.Nodes {
		dirName := node.Package.ID
		if node.Arch != "" {
			dirName = fmt.Sprintf("%s-%s", node.Package.ID, node.Arch)
		}
		task := &BuildTask{
			ID:            node.ID,
			Package:       node.Package,
			Arch:          node.Arch,
			Requires:      append([]string(nil), node.Requires...),
			Optional:      append([]string(nil), node.Optional...),
			BuildType:     cfg.BuildType,
			InstallPrefix: cfg.InstallPrefix,
			ConfigureArgs: configureArgs(node, cfg),
			SourceDir:     filepath.Join(paths.SourceRoot, node.Package.ID),
			BuildDir:      filepath.Join(paths.BuildRoot, dirName),
			LogPath:       filepath.Join(paths.LogDir, dirName+".log"),
		}
		plan.Tasks = append(plan.Tasks, task)
	}
	return plan
}

// Task returns the task with the given ID, if present.
func (p *BuildPlan) Task(id string) (*BuildTask, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// configureArgs assembles the configure-step arguments for one node from the
// global configuration, the package's per-architecture overrides, and the
// advanced toggles.
func configureArgs(node graph.Node, cfg config.Configuration) []string {
	args := []string{
		fmt.Sprintf("-DCMAKE_BUILD_TYPE=%s", cmakeBuildType(cfg.BuildType)),
		fmt.Sprintf("-DCMAKE_INSTALL_PREFIX=%s", cfg.InstallPrefix),
		fmt.Sprintf("-DCMAKE_PREFIX_PATH=%s", cfg.InstallPrefix),
	}
	if node.Arch != "" {
		args = append(args, fmt.Sprintf("-DARCHITECTURE=%s", node.Arch))
	}
	if cfg.P4PPFlags != "" {
		args = append(args, fmt.Sprintf("-DP4PPFLAGS=%s", cfg.P4PPFlags))
	}
	if cfg.ExtraCPPFlags != "" {
		args = append(args, fmt.Sprintf("-DEXTRA_CPPFLAGS=%s", cfg.ExtraCPPFlags))
	}
	if cfg.P4Flags != "" {
		args = append(args, fmt.Sprintf("-DP4FLAGS=%s", cfg.P4Flags))
	}
	if node.Package.RequiresBSP && cfg.BSPPath != "" {
		args = append(args, fmt.Sprintf("-DBSP_PATH=%s", cfg.BSPPath))
	}
	if node.Package.RequiresKernelHeaders && cfg.KDir != "" && cfg.KDir != config.KDirAuto {
		args = append(args, fmt.Sprintf("-DKDIR=%s", cfg.KDir))
	}
	for _, flag := range config.AdvancedFlags {
		if cfg.Advanced[flag] {
			args = append(args, fmt.Sprintf("-D%s=ON", strings.ReplaceAll(strings.ToUpper(flag), "-", "_")))
		}
	}
	if arch := node.Arch; arch != "" {
		args = append(args, node.Package.ArchOptions[arch]...)
	}
	return args
}

// cmakeBuildType maps the build type enum to its CMake spelling.
func cmakeBuildType(b config.BuildType) string {
	switch b {
	case config.BuildTypeDebug:
		return "Debug"
	case config.BuildTypeRelWithDebInfo:
		return "RelWithDebInfo"
	default:
		return "Release"
	}
}
