package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/labrat/labrat/internal/engine"
	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <id>",
	Short: "Get a decision recommendation for an experiment",
	Long: `Combine metrics, the significance test, and the comparison into a
decision: implement the winner, continue collecting data, or accept
that there is no clear winner.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	id := args[0]

	return withEngine(func(eng *engine.Engine) error {
		rec, err := eng.Recommendation(context.Background(), id)
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return fmt.Errorf("experiment '%s' not found", id)
			}
			return fmt.Errorf("failed to compute recommendation: %w", err)
		}

		fmt.Printf("ACTION: %s\n", rec.Action)
		fmt.Printf("CONFIDENCE: %s\n", rec.Confidence)
		fmt.Println()
		for _, line := range rec.Recommendations {
			fmt.Printf("  %s\n", line)
		}
		fmt.Println()
		fmt.Println("NEXT STEPS:")
		for i, step := range rec.NextSteps {
			fmt.Printf("  %d. %s\n", i+1, step)
		}

		return nil
	})
}
