package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/clean"
)

func newCleanCommand() *cobra.Command {
	var (
		skipLogs     bool
		skipBuildDir bool
		yes          bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build artifacts and logs",
		Long: `Remove workspace build output. The workspace profile and the build
history database are never touched, so a clean-then-rebuild cycle with the
same profile reproduces the same configuration.`,
		Example: `  # Remove build artifacts and logs, with confirmation
  p4forge clean

  # Remove build artifacts only, no prompt
  p4forge clean --skip-logs -y`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			scope := clean.Scope{
				BuildDir: !skipBuildDir,
				Logs:     !skipLogs,
			}
			if scope.IsEmpty() {
				a.logger.Info().Msg("nothing to clean")
				return nil
			}

			manager := clean.NewManager(a.settings.BuildRoot, a.settings.LogDir, a.logger)
			if !yes {
				ok, err := manager.Confirm(scope, os.Stdin, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !ok {
					a.logger.Info().Msg("clean canceled")
					return nil
				}
			}

			return manager.Clean(scope)
		},
	}

	cmd.Flags().BoolVar(&skipLogs, "skip-logs", false, "keep the log directory")
	cmd.Flags().BoolVar(&skipBuildDir, "skip-build-dir", false, "keep the build directory")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
