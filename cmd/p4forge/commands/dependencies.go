package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/dependencies"
	"github.com/p4forge/p4forge/pkg/errdefs"
)

func newDependenciesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dependencies",
		Short: "Manage system dependencies of the selected packages",
	}

	cmd.AddCommand(newDependenciesListCommand())
	cmd.AddCommand(newDependenciesInstallCommand())

	return cmd
}

func newDependenciesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the system and source dependencies of the selected packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			cfg, err := a.loadConfiguration()
			if err != nil {
				return err
			}

			system, source, err := collectDependencies(a, cfg.Packages)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tDEPENDENCY")
			for _, dep := range system {
				fmt.Fprintf(w, "system\t%s\n", dep)
			}
			for _, dep := range source {
				fmt.Fprintf(w, "source\t%s\n", dep)
			}
			return w.Flush()
		},
	}
}

func newDependenciesInstallCommand() *cobra.Command {
	var (
		dryRun bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the system and source dependencies of the selected packages",
		Long: `Install the distro packages the selected SDE packages need, via the
system package manager, then build their source dependencies (e.g. thrift,
grpc) from the downloaded archives into the install prefix. A source
dependency whose installed version already satisfies the requirement is
skipped unless --force is given.`,
		Example: `  # Show what would be installed
  p4forge dependencies install --dry-run

  # Install, rebuilding source dependencies even if present
  p4forge dependencies install --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			cfg, err := a.loadConfiguration()
			if err != nil {
				return err
			}

			system, source, err := collectDependencies(a, cfg.Packages)
			if err != nil {
				return err
			}
			if len(system) == 0 && len(source) == 0 {
				a.logger.Info().Msg("no dependencies to install")
				return nil
			}

			if dryRun {
				if len(system) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "would install: %s\n", strings.Join(system, " "))
				}
				if len(source) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "would build from source: %s\n", strings.Join(source, " "))
				}
				return nil
			}

			if len(system) > 0 {
				a.logger.Info().Int("count", len(system)).Msg("installing system dependencies")
				installArgs := append([]string{"install", "-y"}, system...)
				install := exec.CommandContext(cmd.Context(), "apt-get", installArgs...)
				install.Stdout = os.Stdout
				install.Stderr = os.Stderr
				if err := install.Run(); err != nil {
					return errdefs.StepFailed("dependencies", "install", err)
				}
			}

			if len(source) == 0 {
				return nil
			}
			deps, err := dependencies.Resolve(source)
			if err != nil {
				return err
			}
			if err := ensureWorkspaceDirs(a); err != nil {
				return err
			}
			runner := &dependencies.ExecRunner{
				LogPath: filepath.Join(a.settings.LogDir, "source-deps.log"),
				Env: []string{
					"PKG_CONFIG_PATH=" + filepath.Join(cfg.InstallPrefix, "lib", "pkgconfig"),
				},
			}
			installer := dependencies.NewInstaller(
				a.settings.PackageDir, a.settings.BuildRoot, cfg.InstallPrefix,
				a.settings.Jobs, force, runner, a.logger)
			return installer.Install(cmd.Context(), deps)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be installed without running anything")
	cmd.Flags().BoolVar(&force, "force", false, "rebuild source dependencies even when already installed")

	return cmd
}

// collectDependencies gathers the sorted, de-duplicated system and source
// dependencies of the given package selection.
func collectDependencies(a *app, packages []string) (system, source []string, err error) {
	systemSet := map[string]bool{}
	sourceSet := map[string]bool{}
	for _, id := range packages {
		pkg, err := a.registry.Lookup(id)
		if err != nil {
			return nil, nil, err
		}
		for _, dep := range pkg.SystemDeps {
			systemSet[dep] = true
		}
		for _, dep := range pkg.SourceDeps {
			sourceSet[dep] = true
		}
	}
	for dep := range systemSet {
		system = append(system, dep)
	}
	for dep := range sourceSet {
		source = append(source, dep)
	}
	sort.Strings(system)
	sort.Strings(source)
	return system, source, nil
}
