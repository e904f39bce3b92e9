package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labrat/labrat/internal/engine"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare <id>",
	Short: "Compare all variants against the leader",
	Long: `Rank variants by conversion rate and measure each against the leader:
absolute difference, relative lift, and confidence-interval overlap.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	id := args[0]

	return withEngine(func(eng *engine.Engine) error {
		result, err := eng.Comparison(context.Background(), id)
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return fmt.Errorf("experiment '%s' not found", id)
			}
			if errors.Is(err, engine.ErrInvalidInput) {
				return fmt.Errorf("comparison needs at least 2 variants: %w", err)
			}
			return fmt.Errorf("failed to compare variants: %w", err)
		}

		fmt.Printf("BEST: %s at %.2f%% [%.1f%%, %.1f%%]\n",
			result.Best.Name, result.Best.ConversionRate,
			result.Best.ConfidenceInterval.Lower, result.Best.ConfidenceInterval.Upper)
		fmt.Println()

		fmt.Println("VARIANT           RATE     DIFF     LIFT      CI OVERLAP  LIKELY WORSE")
		fmt.Println(strings.Repeat("─", 72))
		for _, other := range result.Others {
			fmt.Printf("%-16s  %-7s  %-7s  %-8s  %-10v  %v\n",
				other.Metrics.Name,
				fmt.Sprintf("%.2f%%", other.Metrics.ConversionRate),
				fmt.Sprintf("%.2f", other.DifferenceFromBest),
				fmt.Sprintf("%.1f%%", other.RelativeLift),
				other.IntervalsOverlap,
				other.LikelyWorse,
			)
		}

		fmt.Println()
		fmt.Printf("%d variants compared, %d likely worse than the leader, mean difference %.2f points\n",
			result.TotalVariants, result.LikelyWorseCount, result.MeanAbsoluteDifference)

		return nil
	})
}
