package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labrat/labrat/internal/engine"
	"github.com/labrat/labrat/internal/server"
	"github.com/labrat/labrat/internal/store"
	"github.com/spf13/cobra"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the labrat HTTP server.

The server provides:
  - Beacon endpoint for assignment and conversion events
  - JSON API for experiment results, significance, comparison,
    time series, and recommendations
  - Dashboard for viewing experiments
  - Health check endpoint

Example:
  labrat serve --port 8080`,
	RunE: runServe,
}

func init() {
	defaultPort := 8080
	if p := os.Getenv("LABRAT_PORT"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			defaultPort = parsed
		}
	}

	serveCmd.Flags().IntVarP(&port, "port", "p", defaultPort, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	eng := engine.New(s, engineConfig())
	srv := server.New(s, eng, port, tokenFilePath())
	return srv.Start()
}

// tokenFilePath is where the server drops its dashboard token so the
// token command can read it back.
func tokenFilePath() string {
	if p := os.Getenv("LABRAT_TOKEN_FILE"); p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(dbPath), ".labrat-token")
}
