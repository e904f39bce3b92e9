package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labrat/labrat/internal/engine"
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results <id>",
	Short: "Show detailed results for an experiment",
	Long:  `Show per-variant conversion rates, confidence intervals, and time to conversion.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	id := args[0]

	return withEngine(func(eng *engine.Engine) error {
		results, err := eng.Results(context.Background(), id)
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return fmt.Errorf("experiment '%s' not found", id)
			}
			return fmt.Errorf("failed to compute results: %w", err)
		}

		exp := results.Experiment
		fmt.Printf("EXPERIMENT: %s (%s)\n", exp.Name, exp.ID)
		fmt.Printf("STATUS: %s\n", exp.Status)
		fmt.Printf("GOAL: %s\n", exp.GoalEvent)
		fmt.Printf("STARTED: %s\n", exp.StartedAt.Format("2006-01-02"))
		fmt.Println()

		fmt.Println("VARIANT           USERS    CONVERSIONS  RATE     95% CI             AVG HOURS")
		fmt.Println(strings.Repeat("─", 80))

		leading := leadingVariant(results.Variants)
		for _, m := range results.Variants {
			indicator := ""
			if m.Name == leading && len(results.Variants) > 1 {
				indicator = " ← LEADING"
			}

			ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", m.ConfidenceInterval.Lower, m.ConfidenceInterval.Upper)
			if m.TotalUsers == 0 {
				ciStr = "N/A"
			}

			hoursStr := "-"
			if m.MeanHoursToConvert != nil {
				hoursStr = fmt.Sprintf("%.1f", *m.MeanHoursToConvert)
			}

			name := m.Name
			if len(name) > 16 {
				name = name[:13] + "..."
			}

			fmt.Printf("%-16s  %-7d  %-11d  %-7s  %-17s  %s%s\n",
				name,
				m.TotalUsers,
				m.Conversions,
				fmt.Sprintf("%.2f%%", m.ConversionRate),
				ciStr,
				hoursStr,
				indicator,
			)
		}

		fmt.Println()
		fmt.Printf("TOTAL: %s users, %s conversions (%.2f%%)\n",
			formatNumber(results.TotalUsers), formatNumber(results.TotalConversions), results.OverallRate)

		return nil
	})
}

func leadingVariant(metrics []engine.VariantMetrics) string {
	best := ""
	bestRate := -1.0
	for _, m := range metrics {
		if m.ConversionRate > bestRate {
			bestRate = m.ConversionRate
			best = m.Name
		}
	}
	return best
}
