package engine

import (
	"fmt"

	"github.com/labrat/labrat/internal/stats"
)

// SignificanceResult reports a chi-square test of independence over all
// variants of an experiment.
type SignificanceResult struct {
	IsSignificant bool `json:"is_significant"`
	// PValue is nil when any variant is below the sample-size gate;
	// that is the normal state early in an experiment, not an error.
	PValue           *float64       `json:"p_value"`
	ChiSquare        float64        `json:"chi_square"`
	DegreesOfFreedom int            `json:"degrees_of_freedom"`
	BestVariant      VariantMetrics `json:"best_variant"`
	Interpretation   string         `json:"interpretation"`
}

// TestSignificance builds a 2xk contingency table (converted vs. not
// converted, one row per variant) and runs a chi-square test on it.
// Degrees of freedom are variantCount-1, matching the dashboard's
// established convention rather than the two-way (rows-1)(cols-1) rule;
// downstream consumers depend on this exact value.
//
// If any variant is below the configured minimums, no test is attempted:
// the result carries a nil p-value and an advisory interpretation.
func TestSignificance(metrics []VariantMetrics, cfg Config) (*SignificanceResult, error) {
	if len(metrics) < 2 {
		return nil, fmt.Errorf("significance test requires at least 2 variants, got %d: %w", len(metrics), ErrInvalidInput)
	}

	result := &SignificanceResult{
		DegreesOfFreedom: len(metrics) - 1,
		BestVariant:      bestVariant(metrics),
	}

	for _, m := range metrics {
		if cfg.belowGate(m) {
			result.Interpretation = fmt.Sprintf(
				"insufficient data: every variant needs at least %d users and %d conversions before testing",
				cfg.MinSampleSize, cfg.MinConversions)
			return result, nil
		}
	}

	result.ChiSquare = chiSquareStatistic(metrics)
	p := stats.ChiSquarePValue(result.ChiSquare, result.DegreesOfFreedom)
	result.PValue = &p
	result.IsSignificant = p < 0.05
	result.Interpretation = interpretPValue(p)

	return result, nil
}

// chiSquareStatistic computes sum((observed-expected)^2/expected) over a
// converted/not-converted table with one row per variant. Expected cell
// frequency is rowTotal*columnTotal/grandTotal.
func chiSquareStatistic(metrics []VariantMetrics) float64 {
	var convertedTotal, notConvertedTotal, grandTotal float64
	for _, m := range metrics {
		convertedTotal += float64(m.Conversions)
		notConvertedTotal += float64(m.TotalUsers - m.Conversions)
		grandTotal += float64(m.TotalUsers)
	}
	if grandTotal == 0 {
		return 0
	}

	var chiSquare float64
	for _, m := range metrics {
		rowTotal := float64(m.TotalUsers)
		observed := [2]float64{float64(m.Conversions), float64(m.TotalUsers - m.Conversions)}
		expected := [2]float64{
			rowTotal * convertedTotal / grandTotal,
			rowTotal * notConvertedTotal / grandTotal,
		}
		for i := range observed {
			if expected[i] > 0 {
				diff := observed[i] - expected[i]
				chiSquare += diff * diff / expected[i]
			}
		}
	}
	return chiSquare
}

// bestVariant is the highest conversion rate; ties keep the first
// occurrence in experiment order.
func bestVariant(metrics []VariantMetrics) VariantMetrics {
	best := metrics[0]
	for _, m := range metrics[1:] {
		if m.ConversionRate > best.ConversionRate {
			best = m
		}
	}
	return best
}

func interpretPValue(p float64) string {
	switch {
	case p < 0.01:
		return "very strong evidence of a difference between variants (p < 0.01)"
	case p < 0.05:
		return "strong evidence of a difference between variants (p < 0.05)"
	case p > 0.5:
		return "no evidence of difference between variants"
	default:
		return "weak evidence, continue testing"
	}
}
