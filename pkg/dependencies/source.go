// Package dependencies builds the third-party source dependencies of the
// selected SDE packages: libraries like thrift and grpc that distro packages
// cannot satisfy and that install into the workspace prefix instead.
package dependencies

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/p4forge/p4forge/pkg/errdefs"
)

// SourceDependency describes one library built from a source archive into
// the workspace install prefix.
type SourceDependency struct {
	// Name is the identifier the package registry's SourceDeps lists use.
	// The source archive is expected at <PackageDir>/<Name>.tar.gz.
	Name string

	// Version is the minimum installed version that satisfies the
	// dependency. An installed copy at or above it is left alone unless
	// the install is forced.
	Version string

	// ConfigureFlags are extra cmake arguments for this library.
	ConfigureFlags []string
}

// Catalog returns the known source dependencies, keyed by the names the
// package registry uses.
func Catalog() map[string]SourceDependency {
	return map[string]SourceDependency{
		"boost": {
			Name:    "boost",
			Version: "1.84.0",
			ConfigureFlags: []string{
				"-DBOOST_ENABLE_CMAKE=ON",
			},
		},
		"grpc": {
			Name:    "grpc",
			Version: "1.54.2",
			ConfigureFlags: []string{
				"-DgRPC_INSTALL=ON",
				"-DgRPC_BUILD_TESTS=OFF",
			},
		},
		"libcrafter": {
			Name:    "libcrafter",
			Version: "1.0",
		},
		"thrift": {
			Name:    "thrift",
			Version: "0.22.0",
			ConfigureFlags: []string{
				"-DCMAKE_CXX_STANDARD=17",
				"-DBUILD_SHARED_LIBS=ON",
			},
		},
	}
}

// Resolve maps registry source dependency names to catalog entries,
// preserving order.
func Resolve(names []string) ([]SourceDependency, error) {
	deps := make([]SourceDependency, 0, len(names))
	for _, name := range names {
		dep, ok := Catalog()[name]
		if !ok {
			return nil, errdefs.InvalidConfiguration(
				fmt.Sprintf("unknown source dependency %q", name), nil)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// Runner executes one external command of a source dependency build.
// The production runner shells out; test runners fake results.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands as external processes with stdout and stderr of
// every command appended to one shared install log.
type ExecRunner struct {
	// LogPath is the shared source-dependency install log.
	LogPath string

	// Env entries are appended to the process environment, typically
	// PKG_CONFIG_PATH pointed at the workspace prefix.
	Env []string
}

func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	logFile, err := os.OpenFile(r.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open install log: %w", err)
	}
	defer logFile.Close()

	fmt.Fprintf(logFile, "+ %s %v\n", name, args)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), r.Env...)
	return cmd.Run()
}

// Installer builds source dependencies into the workspace install prefix.
type Installer struct {
	// PackageDir holds the downloaded source archives.
	PackageDir string

	// BuildRoot holds per-dependency extraction and build directories.
	BuildRoot string

	// InstallPrefix is where the libraries install.
	InstallPrefix string

	// Jobs is the build parallelism (-j).
	Jobs int

	// Force rebuilds a dependency even when an acceptable version is
	// already installed.
	Force bool

	runner Runner
	logger zerolog.Logger
}

// NewInstaller creates an installer running commands through the given
// runner.
func NewInstaller(packageDir, buildRoot, installPrefix string, jobs int, force bool, runner Runner, logger zerolog.Logger) *Installer {
	return &Installer{
		PackageDir:    packageDir,
		BuildRoot:     buildRoot,
		InstallPrefix: installPrefix,
		Jobs:          jobs,
		Force:         force,
		runner:        runner,
		logger:        logger.With().Str("component", "source-deps").Logger(),
	}
}

// Install builds each dependency in order. A dependency whose installed
// version already satisfies the catalog entry is skipped unless forced.
func (i *Installer) Install(ctx context.Context, deps []SourceDependency) error {
	for _, dep := range deps {
		if !i.Force && i.installed(ctx, dep) {
			i.logger.Info().Str("dependency", dep.Name).Str("version", dep.Version).
				Msg("already installed, skipping")
			continue
		}
		i.logger.Info().Str("dependency", dep.Name).Msg("building from source")
		if err := i.install(ctx, dep); err != nil {
			return errdefs.StepFailed(dep.Name, "install", err)
		}
	}
	return nil
}

// installed checks the workspace prefix for an acceptable version via
// pkg-config.
func (i *Installer) installed(ctx context.Context, dep SourceDependency) bool {
	return i.runner.Run(ctx, "",
		"pkg-config", "--atleast-version="+dep.Version, dep.Name) == nil
}

// install runs the extract, configure, and build-and-install sequence for
// one dependency, mirroring the per-package build steps.
func (i *Installer) install(ctx context.Context, dep SourceDependency) error {
	archive := filepath.Join(i.PackageDir, dep.Name+".tar.gz")
	if _, err := os.Stat(archive); err != nil {
		return fmt.Errorf("source archive missing: %w", err)
	}

	srcDir := filepath.Join(i.BuildRoot, dep.Name)
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return err
	}
	if err := i.runner.Run(ctx, srcDir,
		"tar", "xf", archive, "--strip-components", "1", "-C", srcDir); err != nil {
		return err
	}

	buildDir := filepath.Join(srcDir, dep.Name+"_build")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return err
	}
	args := []string{
		"-DCMAKE_INSTALL_PREFIX=" + i.InstallPrefix,
		"-DCMAKE_PREFIX_PATH=" + i.InstallPrefix,
		"-DCMAKE_INSTALL_RPATH=" + i.InstallPrefix,
	}
	args = append(args, dep.ConfigureFlags...)
	args = append(args, srcDir)
	if err := i.runner.Run(ctx, buildDir, "cmake", args...); err != nil {
		return err
	}

	jobs := i.Jobs
	if jobs <= 0 {
		jobs = 1
	}
	return i.runner.Run(ctx, buildDir,
		"cmake", "--build", ".", "--target", "install", "--config", "Release",
		"--", fmt.Sprintf("-j%d", jobs))
}
