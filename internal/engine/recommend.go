package engine

import (
	"context"
	"fmt"
	"time"
)

// Action is the decision a recommendation lands on.
type Action string

const (
	ActionImplementWinner Action = "implement_winner"
	ActionContinue        Action = "continue"
	ActionNoClearWinner   Action = "no_clear_winner"
)

// Confidence labels how much weight to put on the recommendation.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Recommendation is the engine's final verdict on an experiment.
type Recommendation struct {
	Action          Action     `json:"action"`
	Confidence      Confidence `json:"confidence"`
	Recommendations []string   `json:"recommendations"`
	NextSteps       []string   `json:"next_steps"`
}

// minRunningDays is how long an inconclusive experiment runs before the
// engine suggests revisiting the hypothesis.
const minRunningDays = 14

// Recommendation combines variant metrics, the significance test, and
// the comparison into a decision with next steps. The decision rules run
// in order: sample-size gate first, then significance, then effect size.
func (e *Engine) Recommendation(ctx context.Context, experimentID string) (*Recommendation, error) {
	exp, err := e.loadExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	metrics, err := e.allVariantMetrics(ctx, exp)
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{}

	gatePassed := true
	for _, m := range metrics {
		if e.cfg.belowGate(m) {
			gatePassed = false
			break
		}
	}

	significant := false
	switch {
	case !gatePassed:
		rec.Action = ActionContinue
		rec.Confidence = ConfidenceLow
		rec.Recommendations = append(rec.Recommendations, fmt.Sprintf(
			"Not enough data yet: every variant needs at least %d users and %d conversions. Keep the experiment running.",
			e.cfg.MinSampleSize, e.cfg.MinConversions))

	default:
		sig, err := TestSignificance(metrics, e.cfg)
		if err != nil {
			return nil, err
		}
		cmp, err := CompareVariants(metrics)
		if err != nil {
			return nil, err
		}
		significant = sig.IsSignificant

		if sig.IsSignificant {
			rec.Action = ActionImplementWinner
			rec.Confidence = ConfidenceHigh
			runnerUp := cmp.Others[0]
			rec.Recommendations = append(rec.Recommendations, fmt.Sprintf(
				"%q wins with a %.2f%% conversion rate, a %.1f%% lift over %q. The difference is statistically significant.",
				sig.BestVariant.Name, sig.BestVariant.ConversionRate, runnerUp.RelativeLift, runnerUp.Metrics.Name))
		} else {
			maxDifference := 0.0
			for _, other := range cmp.Others {
				if other.DifferenceFromBest > maxDifference {
					maxDifference = other.DifferenceFromBest
				}
			}

			if maxDifference < 1 {
				rec.Action = ActionNoClearWinner
				rec.Confidence = ConfidenceMedium
				rec.Recommendations = append(rec.Recommendations,
					"Variants perform within 1 percentage point of each other with no significant difference. There is no clear winner.")
			} else {
				rec.Action = ActionContinue
				rec.Confidence = ConfidenceMedium
				rec.Recommendations = append(rec.Recommendations, fmt.Sprintf(
					"%q is trending ahead by %.2f percentage points, but the difference is not yet statistically significant. Keep collecting data.",
					cmp.Best.Name, maxDifference))
			}
		}
	}

	// Advisories, appended regardless of which rule fired
	if gatePassed {
		weakest, strongest := metrics[0], metrics[0]
		for _, m := range metrics[1:] {
			if m.ConversionRate < weakest.ConversionRate {
				weakest = m
			}
			if m.ConversionRate > strongest.ConversionRate {
				strongest = m
			}
		}
		if weakest.ConversionRate < strongest.ConversionRate/2 {
			rec.Recommendations = append(rec.Recommendations, fmt.Sprintf(
				"Warning: %q converts at less than half the rate of %q. Consider terminating that variant early.",
				weakest.Name, strongest.Name))
		}
	}

	if !significant && time.Since(exp.StartedAt) >= minRunningDays*24*time.Hour {
		rec.Recommendations = append(rec.Recommendations, fmt.Sprintf(
			"The experiment has run for %d+ days without reaching significance. Consider whether the hypothesis is worth pursuing.",
			minRunningDays))
	}

	rec.NextSteps = nextSteps(rec.Action)
	return rec, nil
}

// nextSteps returns the fixed follow-up checklist for an action.
func nextSteps(action Action) []string {
	switch action {
	case ActionImplementWinner:
		return []string{
			"Roll out the winning variant to all users",
			"Archive the experiment and record the outcome",
			"Plan a follow-up experiment on the next hypothesis",
		}
	case ActionContinue:
		return []string{
			"Keep the experiment running",
			"Check back once every variant clears the sample-size minimums",
			"Avoid peeking-driven decisions before significance",
		}
	case ActionNoClearWinner:
		return []string{
			"Pick either variant; the data shows no meaningful difference",
			"Stop the experiment to free up traffic",
			"Test a bolder change next time",
		}
	default:
		return []string{
			"Review the experiment configuration and collected data",
		}
	}
}
