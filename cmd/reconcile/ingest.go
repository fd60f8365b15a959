package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"photobooth-reconcile/internal/infra/sched"
	"photobooth-reconcile/internal/ingest"
	"photobooth-reconcile/internal/usecase"
)

func ingestCmd() *cobra.Command {
	var (
		file         string
		days         int
		checkGateway bool
		force        bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Compensation run from a CSV/TSV export or stdin",
		Long: `Reads (orderId, email) pairs from a file or stdin and reconciles each
through the same pipeline as the sweep: gateway confirmation, identity
resolution, idempotent granting. Orders unknown locally are backfilled
from the gateway confirmation. --force trusts the feed even when the
gateway reports an order missing; use it only for verified manual
compensation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var in io.Reader
			if file == "" || file == "-" {
				in = os.Stdin
			} else {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			d, err := setup(ctx, usecase.Options{
				CheckGateway: checkGateway,
				Force:        force,
				DurationDays: days,
				Verbose:      verbose,
			})
			if err != nil {
				return err
			}
			defer d.Close()

			sc := ingest.NewScanner(in, d.cfg.Reconcile.OrderPrefix)
			report, err := d.engine.RunBatch(ctx, sc)
			if err != nil {
				return err
			}
			sched.ReportMetrics(report, "ingest")
			fmt.Println(report.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "-", "input file path, or - for stdin")
	cmd.Flags().IntVar(&days, "days", 0, "granted access duration in days (default from config, 30)")
	cmd.Flags().BoolVar(&checkGateway, "check-gateway", true, "confirm pending transactions against the payment gateway")
	cmd.Flags().BoolVar(&force, "force", false, "grant even when the gateway reports the order missing (manual compensation)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log one decision line per candidate")

	return cmd
}
