package cli

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/labrat/labrat/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSeedCmd())
}

func newSeedCmd() *cobra.Command {
	var (
		users int
		days  int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with a demo experiment",
		Long: `Create a demo experiment and fill it with synthetic assignment and
conversion data, spread over the past days. Useful for trying out the
dashboard and analysis commands.

Example:
  labrat seed --users 3000 --days 21`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				exp := &store.Experiment{
					ID:          "demo-checkout-cta",
					Name:        "Demo: checkout CTA",
					Description: "Synthetic data generated by 'labrat seed'",
					Variants:    []string{"control", "variant_a", "variant_b"},
					GoalEvent:   "purchase",
					StartedAt:   time.Now().AddDate(0, 0, -days),
				}
				if err := s.CreateExperiment(ctx, exp); err != nil {
					return fmt.Errorf("failed to create demo experiment: %w", err)
				}

				// Skewed conversion rates so the analysis has something to find
				rates := map[string]float64{
					"control":   0.10,
					"variant_a": 0.13,
					"variant_b": 0.09,
				}

				rng := rand.New(rand.NewSource(time.Now().UnixNano()))
				start := exp.StartedAt
				window := time.Duration(days) * 24 * time.Hour

				for i := 0; i < users; i++ {
					userID := uuid.NewString()
					variant := exp.Variants[rng.Intn(len(exp.Variants))]
					assignedAt := start.Add(time.Duration(rng.Int63n(int64(window))))

					if err := s.RecordAssignment(ctx, exp.ID, userID, variant, assignedAt); err != nil {
						return fmt.Errorf("failed to seed assignment: %w", err)
					}

					if rng.Float64() < rates[variant] {
						// Converts within two days of assignment
						convertedAt := assignedAt.Add(time.Duration(rng.Int63n(int64(48 * time.Hour))))
						props := map[string]any{"source": "seed"}
						if err := s.RecordConversion(ctx, userID, exp.GoalEvent, props, convertedAt); err != nil {
							return fmt.Errorf("failed to seed conversion: %w", err)
						}
					}
				}

				fmt.Printf("Seeded experiment '%s' with %d users over %d days.\n", exp.ID, users, days)
				fmt.Println("Try:")
				fmt.Printf("  labrat results %s\n", exp.ID)
				fmt.Printf("  labrat recommend %s\n", exp.ID)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&users, "users", 3000, "number of synthetic users")
	cmd.Flags().IntVar(&days, "days", 21, "number of days to spread the data over")
	return cmd
}
