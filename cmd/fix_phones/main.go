package main

import (
	"bookingmaint/config"
	"bookingmaint/logging"
	"bookingmaint/phonefix"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	exitCode := 0
	if err := newRootCmd(&exitCode).Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
	os.Exit(exitCode)
}

// newRootCmd reports failures through exitCode so deferred log flushing
// runs before the process exits.
func newRootCmd(exitCode *int) *cobra.Command {
	var envFile string
	var dryRun bool

	rootCmd := &cobra.Command{
		Use:   "fix_phones",
		Short: "Strip everything but digits from bookings.customer_phone",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(envFile)
			if err != nil {
				log.Fatalf("ERROR: %v", err)
			}
			logger, err := logging.New(cfg.LogLevel, "fix_phones")
			if err != nil {
				log.Fatalf("ERROR: %v", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := config.OpenStore(cfg)
			if err != nil {
				logger.Errorw("failed to open store", "backend", cfg.Backend(), "error", err)
				*exitCode = 1
				return
			}
			logger.Debugw("store opened", "backend", cfg.Backend())

			n := &phonefix.Normalizer{
				Store:  store,
				Logger: logger,
				Out:    cmd.OutOrStdout(),
				DryRun: dryRun,
			}
			res, err := n.Run(ctx)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "FAILED: %v\n", err)
				*exitCode = 1
				return
			}
			if res.Err() != nil {
				*exitCode = 1
			}
		},
	}

	rootCmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file to load before reading the environment")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the corrections without writing them")
	return rootCmd
}
