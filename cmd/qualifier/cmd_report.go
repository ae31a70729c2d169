package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"qualifier/internal/qualification/store"
	"qualifier/internal/report"
	"qualifier/pkg/platform/sentinel"
)

func newReportCmd(global *globalFlags) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the summary of a stored run",
		Long: `Loads the outcomes of a previous run from Postgres and prints the same
summary "run" prints. Requires a configured database.`,
		Example: `  qualifier report --run latest
  qualifier report --run 3f2c9a4e-...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(global)
			if err != nil {
				return err
			}
			if cfg.Infra.DatabaseURL == "" {
				return errNoDatabase
			}

			ctx := cmd.Context()
			backing, err := connectInfra(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer backing.close(log)

			st, err := backing.outcomeStore(ctx)
			if err != nil {
				return err
			}

			return printRun(ctx, cmd.OutOrStdout(), st, runID, cfg.Program.TrackedBadges)
		},
	}
	cmd.Flags().StringVar(&runID, "run", "latest", "Run id, or \"latest\"")
	return cmd
}

// printRun loads the outcomes of run id from st and prints their summary.
// An empty id or "latest" selects the most recent run.
func printRun(ctx context.Context, w io.Writer, st store.Store, id string, trackedBadges []string) error {
	var err error
	if id == "" || id == "latest" {
		id, err = st.LatestRun(ctx)
		if errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("no stored runs")
		}
		if err != nil {
			return err
		}
	}

	outcomes, err := st.ListByRun(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Run: %s\n", id); err != nil {
		return err
	}
	return report.RenderText(w, report.Summarize(outcomes, trackedBadges))
}
