package store

import (
	"context"
	"time"
)

// Store defines the interface for experiment and event storage.
type Store interface {
	// Experiment operations
	CreateExperiment(ctx context.Context, exp *Experiment) error
	GetExperiment(ctx context.Context, id string) (*Experiment, error)
	ListExperiments(ctx context.Context) ([]*Experiment, error)
	UpdateExperimentStatus(ctx context.Context, id string, status Status, winnerVariant *string) error
	DeleteExperiment(ctx context.Context, id string) error

	// Ingestion
	RecordAssignment(ctx context.Context, experimentID, userID, variant string, at time.Time) error
	RecordConversion(ctx context.Context, userID, event string, properties map[string]any, at time.Time) error

	// Aggregate reads consumed by the analytics engine
	CountAssignments(ctx context.Context, experimentID, variant string) (int, error)
	CountConvertedUsers(ctx context.Context, experimentID, variant, goalEvent string) (int, error)
	AverageHoursToConversion(ctx context.Context, experimentID, variant, goalEvent string) (*float64, error)
	AssignmentsByPeriod(ctx context.Context, experimentID, variant string, g Granularity) ([]PeriodCount, error)
	ConversionsByPeriod(ctx context.Context, experimentID, variant, goalEvent string, g Granularity) ([]PeriodCount, error)

	// Raw reads for export
	GetAssignments(ctx context.Context, experimentID string) ([]*Assignment, error)
	GetConversions(ctx context.Context, experimentID, goalEvent string) ([]*ConversionEvent, error)

	// Lifecycle
	Close() error
}
