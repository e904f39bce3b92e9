package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labrat/labrat/internal/engine"
	"github.com/labrat/labrat/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newTimeSeriesCmd())
}

func newTimeSeriesCmd() *cobra.Command {
	var granularity string

	cmd := &cobra.Command{
		Use:   "timeseries <id>",
		Short: "Show per-period and cumulative conversion rates",
		Long: `Bucket assignments and conversions into time periods and show
per-period and cumulative conversion rates for every variant.

Example:
  labrat timeseries checkout-cta --granularity week`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			g, err := store.ParseGranularity(granularity)
			if err != nil {
				return err
			}

			return withEngine(func(eng *engine.Engine) error {
				series, err := eng.TimeSeries(context.Background(), id, g)
				if err != nil {
					if errors.Is(err, engine.ErrNotFound) {
						return fmt.Errorf("experiment '%s' not found", id)
					}
					return fmt.Errorf("failed to build time series: %w", err)
				}

				for variant, points := range series.Variants {
					fmt.Printf("VARIANT: %s\n", variant)
					fmt.Println("PERIOD            ASSIGNED  CONVERTED  RATE     CUM ASSIGNED  CUM RATE")
					fmt.Println(strings.Repeat("─", 74))
					for _, p := range points {
						fmt.Printf("%-16s  %-8d  %-9d  %-7s  %-12d  %.2f%%\n",
							p.Period, p.Assignments, p.Conversions,
							fmt.Sprintf("%.2f%%", p.Rate),
							p.CumulativeAssignments, p.CumulativeRate)
					}
					fmt.Println()
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&granularity, "granularity", "g", "day", "bucket size: hour, day, week, or month")
	return cmd
}
