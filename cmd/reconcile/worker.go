package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"photobooth-reconcile/internal/infra/metrics"
	"photobooth-reconcile/internal/infra/sched"
	"photobooth-reconcile/internal/usecase"
)

func workerCmd() *cobra.Command {
	var (
		interval     time.Duration
		window       time.Duration
		limit        int
		days         int
		checkGateway bool
		adminPort    int
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the sweep periodically with an admin/metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := setup(ctx, usecase.Options{
				CheckGateway: checkGateway,
				DurationDays: days,
			})
			if err != nil {
				return err
			}
			defer d.Close()

			if adminPort <= 0 {
				adminPort = d.cfg.Admin.Port
			}
			admin := metrics.NewAdminServer(adminPort, d.log)
			go func() {
				if aerr := admin.Start(); aerr != nil {
					d.log.Error().Err(aerr).Msg("admin server failed")
				}
			}()
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = admin.Shutdown(sctx)
			}()

			w := sched.NewReconcileWorker(d.engine, d.locker, interval, window, limit, d.log)
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "time between sweeps")
	cmd.Flags().DurationVar(&window, "window", 30*24*time.Hour, "how far back each sweep looks")
	cmd.Flags().IntVar(&limit, "limit", 200, "max transactions per sweep")
	cmd.Flags().IntVar(&days, "days", 0, "granted access duration in days (default from config, 30)")
	cmd.Flags().BoolVar(&checkGateway, "check-gateway", true, "confirm pending transactions against the payment gateway")
	cmd.Flags().IntVar(&adminPort, "admin-port", 0, "admin/metrics port (default from config, 9090)")

	return cmd
}
