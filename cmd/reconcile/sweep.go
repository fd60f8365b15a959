package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"photobooth-reconcile/internal/infra/sched"
	"photobooth-reconcile/internal/usecase"
)

func sweepCmd() *cobra.Command {
	var (
		since        string
		limit        int
		days         int
		checkGateway bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile settled transactions that have no active access grant",
		Long: `Scans the transaction store for settlement-like payments newer than
--since that have no active access grant and grants package access for
each. With --check-gateway, pending transactions are confirmed against
the gateway first. Re-running is always safe; granting is idempotent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sinceT, err := parseSince(since)
			if err != nil {
				return err
			}

			d, err := setup(ctx, usecase.Options{
				CheckGateway: checkGateway,
				DurationDays: days,
				Verbose:      verbose,
			})
			if err != nil {
				return err
			}
			defer d.Close()

			unlock, err := acquireRunLock(ctx, d)
			if err != nil {
				return err
			}
			defer unlock()

			report, err := d.engine.Sweep(ctx, sinceT, limit)
			if err != nil {
				return err
			}
			sched.ReportMetrics(report, "sweep")
			fmt.Println(report.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only consider transactions effective on/after this date (2006-01-02 or RFC3339; default 30 days back)")
	cmd.Flags().IntVar(&limit, "limit", 500, "max transactions per run")
	cmd.Flags().IntVar(&days, "days", 0, "granted access duration in days (default from config, 30)")
	cmd.Flags().BoolVar(&checkGateway, "check-gateway", false, "confirm pending transactions against the payment gateway")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log one decision line per candidate")

	return cmd
}

func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Now().AddDate(0, 0, -30), nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --since %q: want 2006-01-02 or RFC3339", s)
}

// acquireRunLock takes the shared run lock when redis is configured, so a
// manual run and the scheduled worker cannot interleave their
// check-then-grant sequences. Without redis it is a no-op.
func acquireRunLock(ctx context.Context, d *deps) (func(), error) {
	if d.locker == nil {
		return func() {}, nil
	}
	token, err := d.locker.TryLock(ctx, "reconcile:sweep", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("another reconciliation run is in progress: %w", err)
	}
	return func() {
		if uerr := d.locker.Unlock(ctx, "reconcile:sweep", token); uerr != nil {
			d.log.Warn().Err(uerr).Msg("run unlock failed")
		}
	}, nil
}
