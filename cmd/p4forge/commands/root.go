package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/config"
	"github.com/p4forge/p4forge/pkg/profile"
	"github.com/p4forge/p4forge/pkg/registry"
	"github.com/p4forge/p4forge/pkg/settings"
	"github.com/p4forge/p4forge/pkg/telemetry"
)

var (
	// Global flags
	verbosity int
	logFile   string
)

// app holds the shared state every subcommand needs: resolved tool
// settings, the root logger, and the package registry.
type app struct {
	settings settings.Settings
	logger   zerolog.Logger
	logClose io.Closer
	registry *registry.Registry
	resolver *config.Resolver
}

var current *app

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	err := rootCmd.ExecuteContext(ctx)
	if current != nil && current.logClose != nil {
		_ = current.logClose.Close()
	}
	return err
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "p4forge",
		Short: "p4forge - SDE build orchestrator",
		Long: `p4forge turns a declarative description of which SDE packages to build,
for which target architectures, with which options, into an ordered and
reproducible sequence of dependency-installation and build steps.

The same configuration can be produced three equivalent ways:
  - the interactive wizard (p4forge interactive)
  - a declarative profile document (p4forge profile apply)
  - discrete configure flags (p4forge configure)`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			current = a
			return nil
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbosity", "v", "increase log verbosity (-v debug, -vv trace)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "duplicate log output to a file")

	// Add subcommands
	rootCmd.AddCommand(newCheckSystemCommand())
	rootCmd.AddCommand(newPackagesCommand())
	rootCmd.AddCommand(newDependenciesCommand())
	rootCmd.AddCommand(newConfigureCommand())
	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newProfileCommand())
	rootCmd.AddCommand(newInteractiveCommand())
	rootCmd.AddCommand(newCleanCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// newApp resolves settings and builds the shared command state.
func newApp() (*app, error) {
	s, err := settings.Load()
	if err != nil {
		return nil, err
	}

	logger, closer, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Verbosity: verbosity,
		Format:    "console",
		File:      logFile,
	})
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	return &app{
		settings: s,
		logger:   logger,
		logClose: closer,
		registry: reg,
		resolver: config.NewResolver(reg),
	}, nil
}

// defaults returns the built-in configuration defaults for this workspace.
func (a *app) defaults() config.Configuration {
	return config.Defaults(a.settings.SDERoot)
}

// loadConfiguration resolves the workspace configuration: the persisted
// profile state when one exists, the built-in defaults otherwise.
func (a *app) loadConfiguration() (config.Configuration, error) {
	if _, err := os.Stat(a.settings.ProfilePath); os.IsNotExist(err) {
		return a.resolver.Resolve(a.defaults(), config.Overrides{}, config.Overrides{})
	}
	doc, err := profile.Load(a.settings.ProfilePath)
	if err != nil {
		return config.Configuration{}, err
	}
	return profile.Apply(doc, a.resolver, a.defaults())
}

// loadProfileDocument loads the workspace profile document, or nil when
// none has been written yet.
func loadProfileDocument(a *app) (*profile.Document, error) {
	if _, err := os.Stat(a.settings.ProfilePath); os.IsNotExist(err) {
		return nil, nil
	}
	return profile.Load(a.settings.ProfilePath)
}

// saveConfiguration persists the resolved configuration as the workspace
// profile document.
func (a *app) saveConfiguration(cfg config.Configuration) error {
	if err := os.MkdirAll(a.settings.SDERoot, 0o755); err != nil {
		return err
	}
	return profile.Create(cfg).Save(a.settings.ProfilePath)
}
