package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/labrat/labrat/internal/engine"
	"github.com/spf13/cobra"
)

var significanceCmd = &cobra.Command{
	Use:   "significance <id>",
	Short: "Run the chi-square significance test for an experiment",
	Long: `Run a chi-square test of independence across all variants.

Reports the chi-square statistic, degrees of freedom, p-value, and
whether the difference between variants is statistically significant.`,
	Args: cobra.ExactArgs(1),
	RunE: runSignificance,
}

func init() {
	rootCmd.AddCommand(significanceCmd)
}

func runSignificance(cmd *cobra.Command, args []string) error {
	id := args[0]

	return withEngine(func(eng *engine.Engine) error {
		result, err := eng.Significance(context.Background(), id)
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return fmt.Errorf("experiment '%s' not found", id)
			}
			if errors.Is(err, engine.ErrInvalidInput) {
				return fmt.Errorf("significance needs at least 2 variants: %w", err)
			}
			return fmt.Errorf("failed to test significance: %w", err)
		}

		fmt.Printf("EXPERIMENT: %s\n", id)
		fmt.Printf("BEST VARIANT: %s (%.2f%%)\n", result.BestVariant.Name, result.BestVariant.ConversionRate)
		fmt.Printf("DEGREES OF FREEDOM: %d\n", result.DegreesOfFreedom)

		if result.PValue == nil {
			fmt.Println("P-VALUE: n/a")
		} else {
			fmt.Printf("CHI-SQUARE: %.4f\n", result.ChiSquare)
			fmt.Printf("P-VALUE: %.4f\n", *result.PValue)
		}
		fmt.Printf("SIGNIFICANT: %v\n", result.IsSignificant)
		fmt.Println()
		fmt.Println(result.Interpretation)

		return nil
	})
}
