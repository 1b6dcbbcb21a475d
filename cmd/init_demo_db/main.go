package main

import (
	"bookingmaint/db"
	"log"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	var dbPath string
	var tenantID string
	var seed bool

	rootCmd := &cobra.Command{
		Use:   "init_demo_db",
		Short: "Create a local SQLite database with the bookings and business_hours tables",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := db.BootstrapSQLite(dbPath, tenantID, seed, time.Now()); err != nil {
				log.Fatalf("Failed to initialize database: %v", err)
			}
			log.Printf("Demo database initialized successfully at %s", dbPath)
			log.Printf("Point the tools at it with DATABASE_URL=sqlite://%s", dbPath)
		},
	}

	rootCmd.Flags().StringVar(&dbPath, "db", "demo.db", "Path to SQLite database file")
	rootCmd.Flags().StringVar(&tenantID, "tenant", db.DemoTenantID, "Tenant the demo rows belong to")
	rootCmd.Flags().BoolVar(&seed, "seed", true, "Whether to load demo rows into the database")

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}
