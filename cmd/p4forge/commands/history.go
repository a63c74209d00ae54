package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded build runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			ctx := cmd.Context()

			if _, err := os.Stat(a.settings.DBPath); os.IsNotExist(err) {
				a.logger.Info().Msg("no build history yet")
				return nil
			}

			store, err := stores.NewSQLiteStore(stores.Config{Path: a.settings.DBPath})
			if err != nil {
				return err
			}
			if err := store.Init(ctx); err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			runs, err := store.ListRuns(ctx, limit, 0)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				a.logger.Info().Msg("no build history yet")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tSTATUS\tOK\tFAILED\tSKIPPED\tDURATION")
			for _, run := range runs {
				duration := "-"
				if run.CompletedAt != nil {
					duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					shortID(run.ID),
					run.StartedAt.Format(time.RFC3339),
					run.Status,
					run.Succeeded, run.Failed, run.Skipped,
					duration)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max runs to list")

	return cmd
}

// shortID abbreviates a run UUID for table output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
