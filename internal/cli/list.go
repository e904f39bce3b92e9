package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/labrat/labrat/internal/store"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all experiments",
	Long:  `List all experiments with their status and headline numbers.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		experiments, err := s.ListExperiments(ctx)
		if err != nil {
			return fmt.Errorf("failed to list experiments: %w", err)
		}

		if len(experiments) == 0 {
			fmt.Println("No experiments yet.")
			fmt.Println()
			fmt.Println("Create one with:")
			fmt.Println("  labrat create checkout-cta --variants \"control,variant_a\" --goal purchase")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tVARIANTS\tUSERS\tCONVERSIONS\tCREATED")

		for _, exp := range experiments {
			totalUsers := 0
			totalConversions := 0
			for _, variant := range exp.Variants {
				users, err := s.CountAssignments(ctx, exp.ID, variant)
				if err != nil {
					return fmt.Errorf("failed to get stats for experiment %s: %w", exp.ID, err)
				}
				conversions, err := s.CountConvertedUsers(ctx, exp.ID, variant, exp.GoalEvent)
				if err != nil {
					return fmt.Errorf("failed to get stats for experiment %s: %w", exp.ID, err)
				}
				totalUsers += users
				totalConversions += conversions
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				exp.ID,
				exp.Name,
				strings.ToUpper(string(exp.Status)),
				len(exp.Variants),
				formatNumber(totalUsers),
				formatNumber(totalConversions),
				exp.CreatedAt.Format("2006-01-02"),
			)
		}

		w.Flush()
		return nil
	})
}
