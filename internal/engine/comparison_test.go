package engine_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/labrat/labrat/internal/engine"
	"github.com/labrat/labrat/internal/stats"
)

func metricsFor(name string, users, conversions int) engine.VariantMetrics {
	rate := 0.0
	if users > 0 {
		rate = math.Round(float64(conversions)/float64(users)*10000) / 100
	}
	return engine.VariantMetrics{
		Name:               name,
		TotalUsers:         users,
		Conversions:        conversions,
		ConversionRate:     rate,
		ConfidenceInterval: stats.WilsonInterval(conversions, users, 0.95),
	}
}

func TestCompareVariants_Ranking(t *testing.T) {
	result, err := engine.CompareVariants([]engine.VariantMetrics{
		metricsFor("control", 1000, 100),
		metricsFor("variant_a", 1000, 220),
		metricsFor("variant_b", 1000, 150),
	})
	if err != nil {
		t.Fatalf("CompareVariants: %v", err)
	}

	if result.Best.Name != "variant_a" {
		t.Errorf("expected best 'variant_a', got %q", result.Best.Name)
	}
	if result.TotalVariants != 3 {
		t.Errorf("expected 3 variants, got %d", result.TotalVariants)
	}
	if len(result.Others) != 2 {
		t.Fatalf("expected 2 others, got %d", len(result.Others))
	}
	// Descending by rate: variant_b (15%) before control (10%)
	if result.Others[0].Metrics.Name != "variant_b" || result.Others[1].Metrics.Name != "control" {
		t.Errorf("unexpected ranking: %q, %q", result.Others[0].Metrics.Name, result.Others[1].Metrics.Name)
	}

	vb := result.Others[0]
	if math.Abs(vb.DifferenceFromBest-7) > 0.001 {
		t.Errorf("expected difference 7 points, got %f", vb.DifferenceFromBest)
	}
	// (22-15)/15*100
	if math.Abs(vb.RelativeLift-46.666) > 0.01 {
		t.Errorf("expected lift ~46.67%%, got %f", vb.RelativeLift)
	}

	// 22% vs 10% on 1000 users each: intervals are disjoint
	control := result.Others[1]
	if control.IntervalsOverlap {
		t.Error("expected disjoint intervals for 22% vs 10%")
	}
	if !control.LikelyWorse {
		t.Error("control should be flagged likely worse")
	}

	wantMean := (7.0 + 12.0) / 2
	if math.Abs(result.MeanAbsoluteDifference-wantMean) > 0.001 {
		t.Errorf("expected mean difference %f, got %f", wantMean, result.MeanAbsoluteDifference)
	}
}

func TestCompareVariants_ZeroRateLift(t *testing.T) {
	// A zero-rate variant reports 0% lift even though the leader is
	// ahead; the difference field still carries the gap.
	result, err := engine.CompareVariants([]engine.VariantMetrics{
		metricsFor("control", 200, 0),
		metricsFor("variant_a", 200, 40),
	})
	if err != nil {
		t.Fatalf("CompareVariants: %v", err)
	}

	control := result.Others[0]
	if control.RelativeLift != 0 {
		t.Errorf("expected lift 0 against a zero-rate variant, got %f", control.RelativeLift)
	}
	if control.DifferenceFromBest != 20 {
		t.Errorf("expected difference 20 points, got %f", control.DifferenceFromBest)
	}
}

func TestCompareVariants_OverlappingIntervals(t *testing.T) {
	// Nearly identical small samples: intervals overlap, nothing is
	// likely worse.
	result, err := engine.CompareVariants([]engine.VariantMetrics{
		metricsFor("control", 100, 10),
		metricsFor("variant_a", 100, 12),
	})
	if err != nil {
		t.Fatalf("CompareVariants: %v", err)
	}

	other := result.Others[0]
	if !other.IntervalsOverlap {
		t.Error("expected overlapping intervals for close rates on small samples")
	}
	if other.LikelyWorse {
		t.Error("overlapping intervals must not flag likely worse")
	}
	if result.LikelyWorseCount != 0 {
		t.Errorf("expected 0 likely worse, got %d", result.LikelyWorseCount)
	}
}

func TestComparison_SingleVariant(t *testing.T) {
	src := &fakeSource{
		experiment:  newFakeExperiment([]string{"control"}),
		assignments: map[string]int{"control": 100},
		conversions: map[string]int{"control": 10},
	}

	_, err := newEngine(src).Comparison(context.Background(), "checkout-cta")
	if !errors.Is(err, engine.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for single-variant experiment, got %v", err)
	}
}
