package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/labrat/labrat/internal/store"
	"github.com/labrat/labrat/internal/testutil"
)

func createExperiment(t *testing.T, s *store.SQLiteStore) *store.Experiment {
	t.Helper()
	exp := &store.Experiment{
		ID:        "checkout-cta",
		Name:      "Checkout CTA",
		Variants:  []string{"control", "variant_a"},
		GoalEvent: "purchase",
	}
	if err := s.CreateExperiment(context.Background(), exp); err != nil {
		t.Fatalf("CreateExperiment: %v", err)
	}
	return exp
}

func TestCreateAndGetExperiment(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)

	got, err := s.GetExperiment(ctx, "checkout-cta")
	if err != nil {
		t.Fatalf("GetExperiment: %v", err)
	}
	if got.Name != "Checkout CTA" || got.GoalEvent != "purchase" {
		t.Errorf("unexpected experiment: %+v", got)
	}
	if len(got.Variants) != 2 || got.Variants[0] != "control" {
		t.Errorf("unexpected variants: %v", got.Variants)
	}
	if got.Status != store.StatusRunning {
		t.Errorf("expected running status, got %s", got.Status)
	}
	if got.StartedAt.IsZero() {
		t.Error("expected a start timestamp")
	}
}

func TestGetExperiment_NotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	_, err := s.GetExperiment(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateExperiment_Validation(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	if err := s.CreateExperiment(ctx, &store.Experiment{
		ID: "x", Variants: []string{"only-one"}, GoalEvent: "purchase",
	}); err == nil {
		t.Error("expected error for single variant")
	}

	if err := s.CreateExperiment(ctx, &store.Experiment{
		ID: "y", Variants: []string{"a", "b"},
	}); err == nil {
		t.Error("expected error for missing goal event")
	}
}

func TestUpdateExperimentStatus_Winner(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)

	winner := "variant_a"
	if err := s.UpdateExperimentStatus(ctx, "checkout-cta", store.StatusCompleted, &winner); err != nil {
		t.Fatalf("UpdateExperimentStatus: %v", err)
	}

	got, err := s.GetExperiment(ctx, "checkout-cta")
	if err != nil {
		t.Fatalf("GetExperiment: %v", err)
	}
	if got.Status != store.StatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.WinnerVariant == nil || *got.WinnerVariant != "variant_a" {
		t.Errorf("expected winner variant_a, got %v", got.WinnerVariant)
	}
	if got.EndedAt == nil {
		t.Error("completed experiment should have an end timestamp")
	}
}

func TestUpdateExperimentStatus_NotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	err := s.UpdateExperimentStatus(context.Background(), "nope", store.StatusPaused, nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordAssignment_FirstWins(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)

	at := time.Now().Add(-time.Hour)
	if err := s.RecordAssignment(ctx, "checkout-cta", "user-1", "control", at); err != nil {
		t.Fatalf("RecordAssignment: %v", err)
	}
	// Repeat with a different variant: must be ignored
	if err := s.RecordAssignment(ctx, "checkout-cta", "user-1", "variant_a", time.Now()); err != nil {
		t.Fatalf("RecordAssignment repeat: %v", err)
	}

	control, err := s.CountAssignments(ctx, "checkout-cta", "control")
	if err != nil {
		t.Fatalf("CountAssignments: %v", err)
	}
	variantA, err := s.CountAssignments(ctx, "checkout-cta", "variant_a")
	if err != nil {
		t.Fatalf("CountAssignments: %v", err)
	}
	if control != 1 || variantA != 0 {
		t.Errorf("expected original assignment to win: control=%d variant_a=%d", control, variantA)
	}
}

func TestCountConvertedUsers_PostAssignmentOnly(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)

	assignedAt := time.Now().Add(-2 * time.Hour)
	if err := s.RecordAssignment(ctx, "checkout-cta", "user-1", "control", assignedAt); err != nil {
		t.Fatalf("RecordAssignment: %v", err)
	}
	if err := s.RecordAssignment(ctx, "checkout-cta", "user-2", "control", assignedAt); err != nil {
		t.Fatalf("RecordAssignment: %v", err)
	}

	// user-1 converted before assignment: must not count
	if err := s.RecordConversion(ctx, "user-1", "purchase", nil, assignedAt.Add(-time.Hour)); err != nil {
		t.Fatalf("RecordConversion: %v", err)
	}
	// user-2 converted after assignment: counts
	if err := s.RecordConversion(ctx, "user-2", "purchase", nil, assignedAt.Add(time.Hour)); err != nil {
		t.Fatalf("RecordConversion: %v", err)
	}
	// unrelated event name: must not count
	if err := s.RecordConversion(ctx, "user-1", "page_view", nil, assignedAt.Add(time.Hour)); err != nil {
		t.Fatalf("RecordConversion: %v", err)
	}

	count, err := s.CountConvertedUsers(ctx, "checkout-cta", "control", "purchase")
	if err != nil {
		t.Fatalf("CountConvertedUsers: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 converted user, got %d", count)
	}
}

func TestCountConvertedUsers_DistinctUsers(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)

	assignedAt := time.Now().Add(-2 * time.Hour)
	if err := s.RecordAssignment(ctx, "checkout-cta", "user-1", "control", assignedAt); err != nil {
		t.Fatalf("RecordAssignment: %v", err)
	}
	// Two qualifying conversions by the same user count once
	for _, offset := range []time.Duration{time.Minute, time.Hour} {
		if err := s.RecordConversion(ctx, "user-1", "purchase", nil, assignedAt.Add(offset)); err != nil {
			t.Fatalf("RecordConversion: %v", err)
		}
	}

	count, err := s.CountConvertedUsers(ctx, "checkout-cta", "control", "purchase")
	if err != nil {
		t.Fatalf("CountConvertedUsers: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 distinct converted user, got %d", count)
	}
}

func TestAverageHoursToConversion(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)

	base := time.Now().Add(-24 * time.Hour)
	// user-1 converts after 2h (first conversion counts, the later one doesn't)
	s.RecordAssignment(ctx, "checkout-cta", "user-1", "control", base)
	s.RecordConversion(ctx, "user-1", "purchase", nil, base.Add(2*time.Hour))
	s.RecordConversion(ctx, "user-1", "purchase", nil, base.Add(10*time.Hour))
	// user-2 converts after 4h
	s.RecordAssignment(ctx, "checkout-cta", "user-2", "control", base)
	s.RecordConversion(ctx, "user-2", "purchase", nil, base.Add(4*time.Hour))

	avg, err := s.AverageHoursToConversion(ctx, "checkout-cta", "control", "purchase")
	if err != nil {
		t.Fatalf("AverageHoursToConversion: %v", err)
	}
	if avg == nil {
		t.Fatal("expected an average, got nil")
	}
	if *avg < 2.9 || *avg > 3.1 {
		t.Errorf("expected average ~3 hours, got %f", *avg)
	}
}

func TestAverageHoursToConversion_NoConversions(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)

	s.RecordAssignment(ctx, "checkout-cta", "user-1", "control", time.Now())

	avg, err := s.AverageHoursToConversion(ctx, "checkout-cta", "control", "purchase")
	if err != nil {
		t.Fatalf("AverageHoursToConversion: %v", err)
	}
	if avg != nil {
		t.Errorf("expected nil average with no conversions, got %f", *avg)
	}
}

func TestAssignmentsByPeriod_Ordering(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)

	day1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	// Insert out of chronological order
	s.RecordAssignment(ctx, "checkout-cta", "user-2", "control", day2)
	s.RecordAssignment(ctx, "checkout-cta", "user-1", "control", day1)
	s.RecordAssignment(ctx, "checkout-cta", "user-3", "control", day2)

	periods, err := s.AssignmentsByPeriod(ctx, "checkout-cta", "control", store.GranularityDay)
	if err != nil {
		t.Fatalf("AssignmentsByPeriod: %v", err)
	}

	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
	if periods[0].Period != "2026-08-01" || periods[0].Count != 1 {
		t.Errorf("unexpected first period: %+v", periods[0])
	}
	if periods[1].Period != "2026-08-02" || periods[1].Count != 2 {
		t.Errorf("unexpected second period: %+v", periods[1])
	}
}

func TestConversionsByPeriod_FirstConversionPerUser(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)

	day1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	s.RecordAssignment(ctx, "checkout-cta", "user-1", "control", day1)
	// First conversion on day 1, repeat on day 3: only day 1 counts
	s.RecordConversion(ctx, "user-1", "purchase", nil, day1.Add(time.Hour))
	s.RecordConversion(ctx, "user-1", "purchase", nil, day1.AddDate(0, 0, 2))

	periods, err := s.ConversionsByPeriod(ctx, "checkout-cta", "control", "purchase", store.GranularityDay)
	if err != nil {
		t.Fatalf("ConversionsByPeriod: %v", err)
	}

	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}
	if periods[0].Period != "2026-08-01" || periods[0].Count != 1 {
		t.Errorf("unexpected period: %+v", periods[0])
	}
}

func TestDeleteExperiment(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)
	s.RecordAssignment(ctx, "checkout-cta", "user-1", "control", time.Now())

	if err := s.DeleteExperiment(ctx, "checkout-cta"); err != nil {
		t.Fatalf("DeleteExperiment: %v", err)
	}
	if _, err := s.GetExperiment(ctx, "checkout-cta"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteExperiment(ctx, "checkout-cta"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestGetConversions_Properties(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	createExperiment(t, s)

	at := time.Now().Add(-time.Hour)
	s.RecordAssignment(ctx, "checkout-cta", "user-1", "control", at)
	props := map[string]any{"plan": "pro"}
	if err := s.RecordConversion(ctx, "user-1", "purchase", props, at.Add(time.Minute)); err != nil {
		t.Fatalf("RecordConversion: %v", err)
	}

	conversions, err := s.GetConversions(ctx, "checkout-cta", "purchase")
	if err != nil {
		t.Fatalf("GetConversions: %v", err)
	}
	if len(conversions) != 1 {
		t.Fatalf("expected 1 conversion, got %d", len(conversions))
	}
	if conversions[0].Properties["plan"] != "pro" {
		t.Errorf("expected properties to round-trip, got %v", conversions[0].Properties)
	}
}
