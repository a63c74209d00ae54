package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/orchestrator"
	"github.com/p4forge/p4forge/pkg/profile"
	"github.com/p4forge/p4forge/pkg/stores"
	"github.com/p4forge/p4forge/pkg/telemetry"
)

func newBuildCommand() *cobra.Command {
	var (
		jobs  int
		trace bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the configured packages",
		Long: `Build every configured package in dependency order with bounded
parallelism. A failed package skips its transitive dependents; independent
subtrees of the dependency graph keep building. Per-package output is
captured to the workspace log directory and the run is recorded in the
build history database.`,
		Example: `  # Build with the default job count
  p4forge build

  # Build with 4 parallel package builds
  p4forge build --jobs 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			ctx := cmd.Context()

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
			if jobs <= 0 {
				jobs = a.settings.Jobs
			}

			// Metrics are collected for every run; the endpoint is only
			// served when a listen address is configured.
			metricsCfg := telemetry.DefaultConfig().Metrics
			metricsCfg.ListenAddress = a.settings.MetricsListen
			metrics, err := telemetry.NewMetrics(metricsCfg)
			if err != nil {
				return err
			}
			metrics.Serve(a.logger)

			tracingCfg := telemetry.DefaultConfig().Tracing
			tracingCfg.Enabled = trace
			tracer, err := telemetry.NewTracer(tracingCfg, "p4forge", cmd.Root().Version)
			if err != nil {
				return err
			}
			defer func() {
				if err := tracer.Shutdown(context.Background()); err != nil {
					a.logger.Debug().Err(err).Msg("tracer shutdown")
				}
			}()

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

			snapshot, err := profile.Create(cfg).Encode()
			if err != nil {
				return err
			}
			// History must still be written when the run is aborted, so
			// the recorder does not share the cancellable run context.
			recorder := stores.NewRecorder(context.Background(), store, string(snapshot), jobs, a.logger)

			runner := newExecRunner(a, cfg, jobs)
			orch := orchestrator.New(runner, jobs, a.logger,
				orchestrator.WithObserver(orchestrator.MultiObserver(
					telemetry.NewRunObserver(metrics),
					recorder,
				)))

			spanCtx, span := tracer.StartRunSpan(ctx, len(plan.Tasks))
			run, runErr := orch.Execute(spanCtx, plan)
			telemetry.SetRunID(span, run.ID)

			printSummary(cmd, plan, run)

			if runErr != nil {
				telemetry.RecordError(span, runErr)
			} else {
				telemetry.RecordSuccess(span)
			}
			span.End()
			return runErr
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "max parallel package builds (default: CPU count)")
	cmd.Flags().BoolVar(&trace, "trace", false, "emit build spans to stdout")

	return cmd
}

// printSummary writes the per-package outcome table and the run counters.
func printSummary(cmd *cobra.Command, plan *orchestrator.BuildPlan, run *orchestrator.Run) {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tSTATUS\tDURATION\tLOG")
	for _, task := range plan.Tasks {
		res, ok := run.Results[task.ID]
		if !ok {
			continue
		}
		detail := res.LogPath
		if res.Status == orchestrator.StatusSkipped {
			detail = res.Reason
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			task.ID, res.Status, res.Duration.Round(time.Millisecond), detail)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d succeeded, %d failed, %d skipped (of %d)\n",
		run.Summary.Succeeded, run.Summary.Failed, run.Summary.Skipped, run.Summary.Total)
}
