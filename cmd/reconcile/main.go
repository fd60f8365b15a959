package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	devMode bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "reconcile",
		Short:         "Payment settlement reconciliation and access granting for the photobooth store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config (optional; env vars also work)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "development mode (console logs, debug level)")

	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(workerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
