package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/labrat/labrat/internal/store"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		name        string
		description string
		variants    string
		goalEvent   string
	)

	cmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create a new experiment",
		Long: `Create a new A/B experiment with the given id.

With flags the experiment is created directly; without them an
interactive prompt walks through the setup.

Examples:
  labrat create checkout-cta --variants "control,variant_a" --goal purchase
  labrat create onboarding --name "Onboarding flow" --variants "control,short,video" --goal signup_completed
  labrat create pricing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			// Interactive setup when flags are missing
			if variants == "" || goalEvent == "" {
				var err error
				name, variants, goalEvent, err = promptForSetup(id, name, variants, goalEvent)
				if err != nil {
					return err
				}
			}
			if name == "" {
				name = id
			}

			variantList := strings.Split(variants, ",")
			for i := range variantList {
				variantList[i] = strings.TrimSpace(variantList[i])
			}
			if err := store.ValidateVariants(variantList); err != nil {
				return fmt.Errorf("invalid variants: %w", err)
			}

			return withStore(func(s *store.SQLiteStore) error {
				exp := &store.Experiment{
					ID:          id,
					Name:        name,
					Description: description,
					Variants:    variantList,
					GoalEvent:   goalEvent,
				}
				if err := s.CreateExperiment(context.Background(), exp); err != nil {
					return fmt.Errorf("failed to create experiment: %w", err)
				}

				fmt.Printf("Created experiment '%s' with %d variants:\n", exp.ID, len(exp.Variants))
				for _, v := range exp.Variants {
					fmt.Printf("  - %s\n", v)
				}
				fmt.Printf("Goal event: %s\n", exp.GoalEvent)
				fmt.Printf("\nRun 'labrat snippet %s' for the integration code.\n", exp.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the id)")
	cmd.Flags().StringVar(&description, "description", "", "what this experiment tests")
	cmd.Flags().StringVarP(&variants, "variants", "v", "", "comma-separated variant names")
	cmd.Flags().StringVarP(&goalEvent, "goal", "g", "", "goal event name that counts as a conversion")

	return cmd
}

func promptForSetup(id, name, variants, goalEvent string) (string, string, string, error) {
	if name == "" {
		prompt := promptui.Prompt{Label: "Display name", Default: id}
		value, err := prompt.Run()
		if err != nil {
			return "", "", "", fmt.Errorf("prompt cancelled: %w", err)
		}
		name = value
	}

	if variants == "" {
		prompt := promptui.Prompt{
			Label:   "Variants (comma-separated, at least 2)",
			Default: "control,variant_a",
			Validate: func(input string) error {
				parts := strings.Split(input, ",")
				for i := range parts {
					parts[i] = strings.TrimSpace(parts[i])
				}
				return store.ValidateVariants(parts)
			},
		}
		value, err := prompt.Run()
		if err != nil {
			return "", "", "", fmt.Errorf("prompt cancelled: %w", err)
		}
		variants = value
	}

	if goalEvent == "" {
		prompt := promptui.Prompt{
			Label: "Goal event",
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return fmt.Errorf("goal event is required")
				}
				return nil
			},
		}
		value, err := prompt.Run()
		if err != nil {
			return "", "", "", fmt.Errorf("prompt cancelled: %w", err)
		}
		goalEvent = value
	}

	return name, variants, goalEvent, nil
}
