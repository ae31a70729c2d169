package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"qualifier/internal/platform/httpserver"
	"qualifier/internal/platform/tracing"
	"qualifier/internal/registration"
	"qualifier/internal/report"
)

type runFlags struct {
	input   string
	output  string
	workers int
	year    int
	addr    string
}

func newRunCmd(global *globalFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Qualify every record of a registration export",
		Long: `Reads the input CSV, fetches public profiles for records that pass the
cheap checks, classifies every record and writes the results table.

Interrupting the run (Ctrl+C) stops new profile checks; records not yet
checked keep their provisional status and are marked "skipped: interrupted".`,
		Example: `  qualifier run --input data.csv --output full_analysis_results.csv
  qualifier run -i data.csv -o out.csv --workers 2 --config qualifier.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQualification(cmd, global, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.input, "input", "i", "data.csv", "Registration CSV to analyze")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "full_analysis_results.csv", "Where to write the results table")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Concurrent profile fetches (overrides config)")
	cmd.Flags().IntVar(&flags.year, "program-year", 0, "Program year (overrides config)")
	cmd.Flags().StringVar(&flags.addr, "http-addr", "", "Serve /metrics and /health on this address during the run")
	return cmd
}

func runQualification(cmd *cobra.Command, global *globalFlags, flags *runFlags) error {
	cfg, log, err := loadConfig(global)
	if err != nil {
		return err
	}
	if flags.workers > 0 {
		cfg.Fetch.Workers = flags.workers
	}
	if flags.year > 0 {
		cfg.Program.Year = flags.year
	}
	if flags.addr != "" {
		cfg.Infra.HTTPAddr = flags.addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := os.Open(flags.input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	ds, err := registration.Read(ctx, in, registration.Columns(cfg.Columns))
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "loaded registrations", "records", ds.Len(), "input", flags.input)

	// Backing services must outlive the interrupt so partial results are kept.
	infraCtx := context.WithoutCancel(ctx)
	backing, err := connectInfra(infraCtx, cfg, log)
	if err != nil {
		return err
	}
	defer backing.close(log)

	reg := newRegistry()
	if cfg.Infra.HTTPAddr != "" {
		opsCtx, stopOps := context.WithCancel(infraCtx)
		defer stopOps()
		srv := httpserver.New(cfg.Infra.HTTPAddr, httpserver.NewOpsRouter(backing.health, reg))
		go func() {
			if err := httpserver.Serve(opsCtx, srv, log); err != nil {
				log.Error("ops server failed", "error", err)
			}
		}()
	}

	st, err := backing.outcomeStore(infraCtx)
	if err != nil {
		return err
	}
	tp := tracing.NewProvider(log)
	defer func() {
		if err := tp.Shutdown(infraCtx); err != nil {
			log.Warn("failed to shut down tracer provider", "error", err)
		}
	}()
	collector := newCollector(cfg, backing, reg, tp, log, nil)
	svc, err := newService(cfg, backing, st, collector, reg, log)
	if err != nil {
		return err
	}

	run, runErr := svc.Run(ctx, ds)
	if run == nil {
		return runErr
	}

	out, err := os.Create(flags.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := report.WriteCSV(out, ds, run.Outcomes, cfg.Output.DropColumns); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	log.InfoContext(infraCtx, "results saved", "output", flags.output, "run_id", run.ID)

	// A saved run is summarized from the store, the same way "report" prints it.
	if runErr == nil {
		return printRun(infraCtx, cmd.OutOrStdout(), st, run.ID, cfg.Program.TrackedBadges)
	}
	summary := report.Summarize(run.Outcomes, cfg.Program.TrackedBadges)
	if err := report.RenderText(cmd.OutOrStdout(), summary); err != nil {
		return err
	}
	return runErr
}
