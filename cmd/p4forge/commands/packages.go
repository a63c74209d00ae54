package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/errdefs"
	"github.com/p4forge/p4forge/pkg/orchestrator"
)

func newPackagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packages",
		Short: "Manage SDE package sources",
	}

	cmd.AddCommand(newPackagesListCommand())
	cmd.AddCommand(newPackagesExtractCommand())

	return cmd
}

func newPackagesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known packages and their dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PACKAGE\tDEPENDS ON\tARCHITECTURES")
			for _, pkg := range current.registry.All() {
				archs := "any"
				if len(pkg.Archs) > 0 {
					names := make([]string, len(pkg.Archs))
					for i, a := range pkg.Archs {
						names[i] = string(a)
					}
					archs = strings.Join(names, ", ")
				}
				deps := strings.Join(pkg.Deps, ", ")
				if deps == "" {
					deps = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", pkg.ID, deps, archs)
			}
			return w.Flush()
		},
	}
}

func newPackagesExtractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Extract the selected packages' source archives",
		Long: `Extract the source archive of every selected package into the workspace
source tree. Extraction is idempotent: packages already extracted are left
untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			cfg, err := a.loadConfiguration()
			if err != nil {
				return err
			}

			plan, err := buildPlan(a, cfg)
			if err != nil {
				return err
			}
			if err := ensureWorkspaceDirs(a); err != nil {
				return err
			}

			runner := newExecRunner(a, cfg, a.settings.Jobs)
			for _, task := range plan.Tasks {
				a.logger.Info().Str("package", task.ID).Msg("extracting")
				if _, err := runner.RunStep(cmd.Context(), task, orchestrator.StepExtract); err != nil {
					return errdefs.StepFailed(task.Package.ID, string(orchestrator.StepExtract), err)
				}
			}

			a.logger.Info().Int("packages", len(plan.Tasks)).Msg("extraction complete")
			return nil
		},
	}
}
