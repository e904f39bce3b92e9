package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/labrat/labrat/internal/stats"
	"github.com/labrat/labrat/internal/store"
)

// VariantMetrics are the derived conversion statistics for one variant.
type VariantMetrics struct {
	Name        string  `json:"name"`
	TotalUsers  int     `json:"total_users"`
	Conversions int     `json:"conversions"`
	// ConversionRate is a percentage (0-100), rounded to 2 decimal places.
	ConversionRate     float64        `json:"conversion_rate"`
	ConfidenceInterval stats.Interval `json:"confidence_interval"`
	// MeanHoursToConvert is nil when the variant has no conversions.
	MeanHoursToConvert *float64 `json:"mean_hours_to_convert,omitempty"`
}

// variantMetrics turns raw assignment and conversion counts for one
// variant into a rate, Wilson interval, and mean time-to-conversion.
func (e *Engine) variantMetrics(ctx context.Context, exp *store.Experiment, variant string) (VariantMetrics, error) {
	m := VariantMetrics{Name: variant}

	total, err := e.src.CountAssignments(ctx, exp.ID, variant)
	if err != nil {
		return m, fmt.Errorf("count assignments for experiment %q variant %q: %w", exp.ID, variant, err)
	}
	conversions, err := e.src.CountConvertedUsers(ctx, exp.ID, variant, exp.GoalEvent)
	if err != nil {
		return m, fmt.Errorf("count conversions for experiment %q variant %q: %w", exp.ID, variant, err)
	}

	m.TotalUsers = total
	m.Conversions = conversions
	if total > 0 {
		m.ConversionRate = round2(float64(conversions) / float64(total) * 100)
	}
	m.ConfidenceInterval = stats.WilsonInterval(conversions, total, e.cfg.ConfidenceLevel)

	if conversions > 0 {
		hours, err := e.src.AverageHoursToConversion(ctx, exp.ID, variant, exp.GoalEvent)
		if err != nil {
			return m, fmt.Errorf("average hours to conversion for experiment %q variant %q: %w", exp.ID, variant, err)
		}
		m.MeanHoursToConvert = hours
	}

	return m, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
