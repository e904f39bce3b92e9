// Package engine computes experiment analytics: per-variant conversion
// metrics, chi-square significance testing, head-to-head comparison,
// time-series rollups, and a rule-based recommendation. It is stateless;
// every operation reads fresh data from its DataSource and derives
// everything else.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/labrat/labrat/internal/store"
)

var (
	// ErrNotFound is returned when the requested experiment id does not
	// exist in the data source.
	ErrNotFound = errors.New("experiment not found")

	// ErrInvalidInput is returned when an operation that compares
	// variants is given fewer than two of them.
	ErrInvalidInput = errors.New("invalid input")
)

// DataSource supplies experiment definitions and aggregate event counts.
// *store.SQLiteStore satisfies it; tests use an in-memory fake.
type DataSource interface {
	GetExperiment(ctx context.Context, id string) (*store.Experiment, error)
	CountAssignments(ctx context.Context, experimentID, variant string) (int, error)
	CountConvertedUsers(ctx context.Context, experimentID, variant, goalEvent string) (int, error)
	AverageHoursToConversion(ctx context.Context, experimentID, variant, goalEvent string) (*float64, error)
	AssignmentsByPeriod(ctx context.Context, experimentID, variant string, g store.Granularity) ([]store.PeriodCount, error)
	ConversionsByPeriod(ctx context.Context, experimentID, variant, goalEvent string, g store.Granularity) ([]store.PeriodCount, error)
}

// Config holds the engine's tunables, bound once at construction.
type Config struct {
	// ConfidenceLevel sets the z critical value for Wilson intervals.
	ConfidenceLevel float64
	// MinSampleSize is the fewest assigned users any variant may have
	// before a significance test is attempted.
	MinSampleSize int
	// MinConversions is the fewest conversions any variant may have
	// before a significance test is attempted.
	MinConversions int
}

// DefaultConfig returns the standard tunables: 95% confidence, at least
// 100 assigned users and 10 conversions per variant.
func DefaultConfig() Config {
	return Config{
		ConfidenceLevel: 0.95,
		MinSampleSize:   100,
		MinConversions:  10,
	}
}

// belowGate reports whether a variant is too small to test.
func (c Config) belowGate(m VariantMetrics) bool {
	return m.TotalUsers < c.MinSampleSize || m.Conversions < c.MinConversions
}

type Engine struct {
	src DataSource
	cfg Config
}

func New(src DataSource, cfg Config) *Engine {
	if cfg.ConfidenceLevel == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{src: src, cfg: cfg}
}

// loadExperiment fetches and validates the experiment, translating the
// store's not-found sentinel into the engine's taxonomy.
func (e *Engine) loadExperiment(ctx context.Context, id string) (*store.Experiment, error) {
	exp, err := e.src.GetExperiment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("experiment %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load experiment %q: %w", id, err)
	}
	return exp, nil
}

// ExperimentResults aggregates every variant's metrics for one experiment.
type ExperimentResults struct {
	Experiment       *store.Experiment `json:"experiment"`
	Variants         []VariantMetrics  `json:"variants"`
	TotalUsers       int               `json:"total_users"`
	TotalConversions int               `json:"total_conversions"`
	OverallRate      float64           `json:"overall_rate"`
}

// Results computes metrics for all of an experiment's variants plus
// experiment-wide totals.
func (e *Engine) Results(ctx context.Context, experimentID string) (*ExperimentResults, error) {
	exp, err := e.loadExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	metrics, err := e.allVariantMetrics(ctx, exp)
	if err != nil {
		return nil, err
	}

	results := &ExperimentResults{Experiment: exp, Variants: metrics}
	for _, m := range metrics {
		results.TotalUsers += m.TotalUsers
		results.TotalConversions += m.Conversions
	}
	if results.TotalUsers > 0 {
		results.OverallRate = round2(float64(results.TotalConversions) / float64(results.TotalUsers) * 100)
	}
	return results, nil
}

// Significance runs the chi-square test of independence across the
// experiment's variants.
func (e *Engine) Significance(ctx context.Context, experimentID string) (*SignificanceResult, error) {
	exp, err := e.loadExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	metrics, err := e.allVariantMetrics(ctx, exp)
	if err != nil {
		return nil, err
	}
	return TestSignificance(metrics, e.cfg)
}

// Comparison ranks the experiment's variants against the leader.
func (e *Engine) Comparison(ctx context.Context, experimentID string) (*ComparisonResult, error) {
	exp, err := e.loadExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	metrics, err := e.allVariantMetrics(ctx, exp)
	if err != nil {
		return nil, err
	}
	return CompareVariants(metrics)
}

func (e *Engine) allVariantMetrics(ctx context.Context, exp *store.Experiment) ([]VariantMetrics, error) {
	metrics := make([]VariantMetrics, 0, len(exp.Variants))
	for _, variant := range exp.Variants {
		m, err := e.variantMetrics(ctx, exp, variant)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}
