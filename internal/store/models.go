package store

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Experiment is a configured A/B test: a set of named variants and the
// goal event that counts as a conversion. Variant names are validated
// once at write time and re-validated on load.
type Experiment struct {
	ID            string
	Name          string
	Description   string
	Variants      []string // Decoded from JSON
	GoalEvent     string
	Status        Status
	WinnerVariant *string
	StartedAt     time.Time
	EndedAt       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasVariant reports whether name is one of the experiment's variants.
func (e *Experiment) HasVariant(name string) bool {
	for _, v := range e.Variants {
		if v == name {
			return true
		}
	}
	return false
}

// ValidateVariants checks an experiment's variant list: at least two
// entries, all non-empty, all unique.
func ValidateVariants(variants []string) error {
	if len(variants) < 2 {
		return fmt.Errorf("need at least 2 variants, got %d", len(variants))
	}
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("variant names must be non-empty")
		}
		if seen[v] {
			return fmt.Errorf("duplicate variant name %q", v)
		}
		seen[v] = true
	}
	return nil
}

// Assignment records which variant a user was bucketed into.
// At most one assignment exists per (experiment, user) pair.
type Assignment struct {
	ExperimentID string
	UserID       string
	Variant      string
	AssignedAt   time.Time
}

// ConversionEvent is a behavioral event emitted by a client. An event
// counts toward a variant's conversions only if it matches the
// experiment's goal event and occurred at or after the user's assignment.
type ConversionEvent struct {
	ID         int64
	UserID     string
	Name       string
	Properties map[string]any
	OccurredAt time.Time
}

// Granularity is the time-bucket size for time-series queries.
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity validates a user-supplied granularity string.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityHour, GranularityDay, GranularityWeek, GranularityMonth:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("invalid granularity %q (want hour, day, week, or month)", s)
}

// PeriodCount is one time bucket with its event count.
type PeriodCount struct {
	Period string
	Count  int
}

// PeriodKey formats a timestamp into its bucket label, chosen so that
// lexicographic order is chronological order: "2006-01-02T15:00" for
// hours, "2006-01-02" for days, "2006-W02" for ISO weeks, "2006-01"
// for months. Timestamps are bucketed in UTC.
func PeriodKey(t time.Time, g Granularity) string {
	t = t.UTC()
	switch g {
	case GranularityHour:
		return t.Format("2006-01-02T15:00")
	case GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case GranularityMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
