package engine

import (
	"fmt"
	"sort"
)

// VariantComparison is one variant measured against the current leader.
type VariantComparison struct {
	Metrics VariantMetrics `json:"metrics"`
	// DifferenceFromBest is the leader's rate minus this variant's rate,
	// in percentage points.
	DifferenceFromBest float64 `json:"difference_from_best"`
	// RelativeLift is the leader's relative advantage as a percentage of
	// this variant's rate. Zero when this variant's rate is zero.
	RelativeLift     float64 `json:"relative_lift"`
	IntervalsOverlap bool    `json:"intervals_overlap"`
	// LikelyWorse holds when the intervals are disjoint and this variant
	// trails the leader.
	LikelyWorse bool `json:"likely_worse"`
}

// ComparisonResult ranks variants by conversion rate and measures each
// against the leader.
type ComparisonResult struct {
	Best                   VariantMetrics      `json:"best"`
	Others                 []VariantComparison `json:"others"`
	TotalVariants          int                 `json:"total_variants"`
	LikelyWorseCount       int                 `json:"likely_worse_count"`
	MeanAbsoluteDifference float64             `json:"mean_absolute_difference"`
}

// CompareVariants sorts variants descending by conversion rate and
// computes pairwise differences, lift, and confidence-interval overlap
// against the leader. Ties keep experiment order.
func CompareVariants(metrics []VariantMetrics) (*ComparisonResult, error) {
	if len(metrics) < 2 {
		return nil, fmt.Errorf("comparison requires at least 2 variants, got %d: %w", len(metrics), ErrInvalidInput)
	}

	ranked := make([]VariantMetrics, len(metrics))
	copy(ranked, metrics)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ConversionRate > ranked[j].ConversionRate
	})

	best := ranked[0]
	result := &ComparisonResult{
		Best:          best,
		TotalVariants: len(ranked),
	}

	var differenceSum float64
	for _, m := range ranked[1:] {
		diff := best.ConversionRate - m.ConversionRate

		lift := 0.0
		if m.ConversionRate != 0 {
			lift = diff / m.ConversionRate * 100
		}

		overlap := !(best.ConfidenceInterval.Lower > m.ConfidenceInterval.Upper ||
			m.ConfidenceInterval.Lower > best.ConfidenceInterval.Upper)
		likelyWorse := !overlap && m.ConversionRate < best.ConversionRate

		result.Others = append(result.Others, VariantComparison{
			Metrics:            m,
			DifferenceFromBest: diff,
			RelativeLift:       lift,
			IntervalsOverlap:   overlap,
			LikelyWorse:        likelyWorse,
		})

		differenceSum += diff
		if likelyWorse {
			result.LikelyWorseCount++
		}
	}

	result.MeanAbsoluteDifference = differenceSum / float64(len(result.Others))
	return result, nil
}
