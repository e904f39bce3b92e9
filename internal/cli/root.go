package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "labrat",
	Short: "labrat - a self-hosted product-analytics experiment engine",
	Long: `labrat is a self-hosted A/B experiment engine for product analytics.
Single Go binary, embedded SQLite, no external dependencies.

Clients emit assignment and conversion beacons; labrat computes
conversion rates, confidence intervals, significance tests, and a
recommendation for every experiment.`,
	RunE: runServe, // Default action is to start the server
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("LABRAT_DB_PATH", "./labrat.db"), "database path")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
