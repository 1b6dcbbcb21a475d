package main

import (
	"bookingmaint/config"
	"bookingmaint/diagnostics"
	"bookingmaint/logging"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	exitCode := 0
	if err := newRootCmd(&exitCode).Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
	os.Exit(exitCode)
}

func newRootCmd(exitCode *int) *cobra.Command {
	var envFile string
	var tenantID string
	var strict bool

	rootCmd := &cobra.Command{
		Use:   "check_availability",
		Short: "Diagnose why the booking bot finds no free slots for a tenant",
		Long: "Runs the business_hours and bookings reads the booking bot performs and explains\n" +
			"empty results. Read-only.",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load(envFile)
			if err != nil {
				log.Fatalf("ERROR: %v", err)
			}
			if tenantID != "" {
				cfg.TenantID = tenantID
			}
			if err := cfg.ValidateTenant(); err != nil {
				log.Fatalf("ERROR: %v", err)
			}
			logger, err := logging.New(cfg.LogLevel, "check_availability")
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
			if p, ok := store.(config.Pinger); ok {
				if err := p.Ping(ctx); err != nil {
					logger.Warnw("store ping failed, running the checks anyway", "backend", cfg.Backend(), "error", err)
				}
			}

			report := diagnostics.Diagnose(ctx, store, cfg.TenantID, time.Now(), logger)
			if _, err := report.WriteTo(cmd.OutOrStdout()); err != nil {
				logger.Errorw("failed to write report", "error", err)
			}
			if strict && !report.Healthy() {
				*exitCode = 1
			}
		},
	}

	rootCmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file to load before reading the environment")
	rootCmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id to check (default: $TENANT_ID, $WA_DEFAULT_TENANT_ID, then the built-in tenant)")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when a check fails or no open hours are found")
	return rootCmd
}
