package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/labrat/labrat/internal/store"
)

// TimeSeriesPoint is one time bucket of a variant's funnel, with running
// cumulative totals.
type TimeSeriesPoint struct {
	Period      string  `json:"period"`
	Assignments int     `json:"assignments"`
	Conversions int     `json:"conversions"`
	Rate        float64 `json:"rate"`
	// Cumulative counts are running sums in chronological order and are
	// non-decreasing across the series.
	CumulativeAssignments int     `json:"cumulative_assignments"`
	CumulativeConversions int     `json:"cumulative_conversions"`
	CumulativeRate        float64 `json:"cumulative_rate"`
}

// CombinedPoint lines up all variants' points for one period.
type CombinedPoint struct {
	Period   string                     `json:"period"`
	Variants map[string]TimeSeriesPoint `json:"variants"`
}

// TimeSeries is the per-variant and combined timeline view of an
// experiment at one granularity.
type TimeSeries struct {
	ExperimentID string                       `json:"experiment_id"`
	Granularity  store.Granularity            `json:"granularity"`
	Variants     map[string][]TimeSeriesPoint `json:"variants"`
	Combined     []CombinedPoint              `json:"combined"`
}

// TimeSeries buckets each variant's assignments and conversions into
// periods at the requested granularity and merges them into a combined
// timeline for side-by-side charting.
func (e *Engine) TimeSeries(ctx context.Context, experimentID string, g store.Granularity) (*TimeSeries, error) {
	exp, err := e.loadExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	series := &TimeSeries{
		ExperimentID: exp.ID,
		Granularity:  g,
		Variants:     make(map[string][]TimeSeriesPoint, len(exp.Variants)),
	}

	for _, variant := range exp.Variants {
		assignments, err := e.src.AssignmentsByPeriod(ctx, exp.ID, variant, g)
		if err != nil {
			return nil, fmt.Errorf("assignments by period for experiment %q variant %q: %w", exp.ID, variant, err)
		}
		conversions, err := e.src.ConversionsByPeriod(ctx, exp.ID, variant, exp.GoalEvent, g)
		if err != nil {
			return nil, fmt.Errorf("conversions by period for experiment %q variant %q: %w", exp.ID, variant, err)
		}
		series.Variants[variant] = BuildTimeSeries(assignments, conversions)
	}

	series.Combined = combineTimelines(exp.Variants, series.Variants)
	return series, nil
}

// BuildTimeSeries merges assignment and conversion buckets into one
// chronological series with per-period rates and cumulative rollups. A
// period present in either input appears in the output.
func BuildTimeSeries(assignments, conversions []store.PeriodCount) []TimeSeriesPoint {
	assignedBy := make(map[string]int, len(assignments))
	convertedBy := make(map[string]int, len(conversions))
	periodSet := make(map[string]bool)

	for _, pc := range assignments {
		assignedBy[pc.Period] += pc.Count
		periodSet[pc.Period] = true
	}
	for _, pc := range conversions {
		convertedBy[pc.Period] += pc.Count
		periodSet[pc.Period] = true
	}

	periods := make([]string, 0, len(periodSet))
	for p := range periodSet {
		periods = append(periods, p)
	}
	// Period keys sort chronologically (see store.PeriodKey)
	sort.Strings(periods)

	points := make([]TimeSeriesPoint, 0, len(periods))
	var cumAssignments, cumConversions int
	for _, period := range periods {
		assigned := assignedBy[period]
		converted := convertedBy[period]
		cumAssignments += assigned
		cumConversions += converted

		point := TimeSeriesPoint{
			Period:                period,
			Assignments:           assigned,
			Conversions:           converted,
			CumulativeAssignments: cumAssignments,
			CumulativeConversions: cumConversions,
		}
		if assigned > 0 {
			point.Rate = round2(float64(converted) / float64(assigned) * 100)
		}
		if cumAssignments > 0 {
			point.CumulativeRate = round2(float64(cumConversions) / float64(cumAssignments) * 100)
		}
		points = append(points, point)
	}
	return points
}

// combineTimelines merges all variants' points keyed by period.
func combineTimelines(variantOrder []string, byVariant map[string][]TimeSeriesPoint) []CombinedPoint {
	periodSet := make(map[string]bool)
	indexed := make(map[string]map[string]TimeSeriesPoint, len(byVariant))

	for _, variant := range variantOrder {
		indexed[variant] = make(map[string]TimeSeriesPoint)
		for _, point := range byVariant[variant] {
			indexed[variant][point.Period] = point
			periodSet[point.Period] = true
		}
	}

	periods := make([]string, 0, len(periodSet))
	for p := range periodSet {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	combined := make([]CombinedPoint, 0, len(periods))
	for _, period := range periods {
		cp := CombinedPoint{Period: period, Variants: make(map[string]TimeSeriesPoint)}
		for _, variant := range variantOrder {
			if point, ok := indexed[variant][period]; ok {
				cp.Variants[variant] = point
			}
		}
		combined = append(combined, cp)
	}
	return combined
}
