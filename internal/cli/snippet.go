package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/labrat/labrat/internal/snippets"
	"github.com/labrat/labrat/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSnippetCmd())
}

func newSnippetCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "snippet <id>",
		Short: "Print the integration snippet for an experiment",
		Long: `Print the HTML/JS snippet that buckets visitors into variants and
sends beacons for an experiment. For a completed experiment with a
declared winner, prints static code using only the winning variant.

Example:
  labrat snippet checkout-cta --server https://labrat.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				exp, err := s.GetExperiment(context.Background(), id)
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("experiment '%s' not found", id)
					}
					return fmt.Errorf("failed to get experiment: %w", err)
				}

				fmt.Print(snippets.Generate(exp, serverURL))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", getEnvOrDefault("LABRAT_SERVER_URL", "http://localhost:8080"), "public URL of the labrat server")
	return cmd
}
