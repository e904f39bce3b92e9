package cli

import (
	"context"
	"fmt"

	"github.com/labrat/labrat/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newWinnerCmd())
}

func newWinnerCmd() *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "winner <id>",
		Short: "Declare a winner and complete an experiment",
		Long: `Declare a winning variant, mark the experiment completed, and stamp
its end time. The beacon drops further hits for completed experiments.

Example:
  labrat winner checkout-cta --variant variant_a`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()
				exp, err := s.GetExperiment(ctx, id)
				if err != nil {
					return fmt.Errorf("experiment not found: %s", id)
				}

				if exp.Status != store.StatusRunning {
					return fmt.Errorf("experiment is not running (current status: %s)", exp.Status)
				}
				if !exp.HasVariant(variant) {
					return fmt.Errorf("unknown variant %q (experiment has: %v)", variant, exp.Variants)
				}

				if err := s.UpdateExperimentStatus(ctx, id, store.StatusCompleted, &variant); err != nil {
					return fmt.Errorf("failed to set winner: %w", err)
				}

				fmt.Printf("Declared winner for experiment '%s': %q\n", id, variant)
				fmt.Println("Experiment has been marked as completed.")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&variant, "variant", "v", "", "winning variant name (required)")
	cmd.MarkFlagRequired("variant")

	return cmd
}
