package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/labrat/labrat/internal/engine"
	"github.com/labrat/labrat/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newExportCmd())
}

func newExportCmd() *cobra.Command {
	var (
		format  string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export raw event data or computed metrics",
		Long: `Export an experiment's raw assignment/conversion rows, or with
--metrics the computed per-variant metrics.

Examples:
  labrat export checkout-cta --format csv > checkout-data.csv
  labrat export checkout-cta --format json > checkout-data.json
  labrat export checkout-cta --metrics > checkout-metrics.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			if format != "csv" && format != "json" {
				return fmt.Errorf("invalid format: must be 'csv' or 'json'")
			}

			if metrics {
				return exportMetrics(id)
			}
			return exportEvents(id, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format (csv or json)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "export computed per-variant metrics instead of raw events")
	return cmd
}

func exportEvents(id, format string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		exp, err := s.GetExperiment(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("experiment '%s' not found", id)
			}
			return fmt.Errorf("failed to get experiment: %w", err)
		}

		assignments, err := s.GetAssignments(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get assignments: %w", err)
		}
		conversions, err := s.GetConversions(ctx, id, exp.GoalEvent)
		if err != nil {
			return fmt.Errorf("failed to get conversions: %w", err)
		}

		if format == "csv" {
			return exportEventsCSV(assignments, conversions)
		}
		return exportEventsJSON(assignments, conversions)
	})
}

func exportEventsCSV(assignments []*store.Assignment, conversions []*store.ConversionEvent) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "type", "user_id", "variant", "event"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, a := range assignments {
		row := []string{
			strconv.FormatInt(a.AssignedAt.Unix(), 10),
			"assignment",
			a.UserID,
			a.Variant,
			"",
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	for _, e := range conversions {
		row := []string{
			strconv.FormatInt(e.OccurredAt.Unix(), 10),
			"conversion",
			e.UserID,
			"",
			e.Name,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

type jsonExport struct {
	Assignments []jsonAssignment `json:"assignments"`
	Conversions []jsonConversion `json:"conversions"`
}

type jsonAssignment struct {
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"user_id"`
	Variant   string `json:"variant"`
}

type jsonConversion struct {
	Timestamp  int64          `json:"timestamp"`
	UserID     string         `json:"user_id"`
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties,omitempty"`
}

func exportEventsJSON(assignments []*store.Assignment, conversions []*store.ConversionEvent) error {
	export := jsonExport{
		Assignments: make([]jsonAssignment, len(assignments)),
		Conversions: make([]jsonConversion, len(conversions)),
	}

	for i, a := range assignments {
		export.Assignments[i] = jsonAssignment{
			Timestamp: a.AssignedAt.Unix(),
			UserID:    a.UserID,
			Variant:   a.Variant,
		}
	}
	for i, e := range conversions {
		export.Conversions[i] = jsonConversion{
			Timestamp:  e.OccurredAt.Unix(),
			UserID:     e.UserID,
			Event:      e.Name,
			Properties: e.Properties,
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func exportMetrics(id string) error {
	return withEngine(func(eng *engine.Engine) error {
		results, err := eng.Results(context.Background(), id)
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return fmt.Errorf("experiment '%s' not found", id)
			}
			return fmt.Errorf("failed to compute results: %w", err)
		}

		w := csv.NewWriter(os.Stdout)
		defer w.Flush()

		if err := w.Write([]string{"variant", "total_users", "conversions", "conversion_rate", "ci_lower", "ci_upper", "mean_hours_to_convert"}); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}

		for _, m := range results.Variants {
			hours := ""
			if m.MeanHoursToConvert != nil {
				hours = strconv.FormatFloat(*m.MeanHoursToConvert, 'f', 2, 64)
			}
			row := []string{
				m.Name,
				strconv.Itoa(m.TotalUsers),
				strconv.Itoa(m.Conversions),
				strconv.FormatFloat(m.ConversionRate, 'f', 2, 64),
				strconv.FormatFloat(m.ConfidenceInterval.Lower, 'f', 2, 64),
				strconv.FormatFloat(m.ConfidenceInterval.Upper, 'f', 2, 64),
				hours,
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}

		return nil
	})
}
