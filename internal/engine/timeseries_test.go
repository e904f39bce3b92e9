package engine_test

import (
	"context"
	"testing"

	"github.com/labrat/labrat/internal/engine"
	"github.com/labrat/labrat/internal/store"
)

func TestBuildTimeSeries_Cumulative(t *testing.T) {
	assignments := []store.PeriodCount{
		{Period: "2026-08-01", Count: 100},
		{Period: "2026-08-02", Count: 50},
		{Period: "2026-08-03", Count: 80},
	}
	conversions := []store.PeriodCount{
		{Period: "2026-08-01", Count: 10},
		{Period: "2026-08-03", Count: 12},
	}

	points := engine.BuildTimeSeries(assignments, conversions)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}

	// Per-period values
	if points[0].Rate != 10 {
		t.Errorf("expected 10%% on day 1, got %f", points[0].Rate)
	}
	if points[1].Conversions != 0 || points[1].Rate != 0 {
		t.Errorf("day without conversions should have count 0 and rate 0, got %d / %f",
			points[1].Conversions, points[1].Rate)
	}

	// Cumulative running sums
	wantAssignments := []int{100, 150, 230}
	wantConversions := []int{10, 10, 22}
	for i, p := range points {
		if p.CumulativeAssignments != wantAssignments[i] {
			t.Errorf("point %d: cumulative assignments = %d, want %d", i, p.CumulativeAssignments, wantAssignments[i])
		}
		if p.CumulativeConversions != wantConversions[i] {
			t.Errorf("point %d: cumulative conversions = %d, want %d", i, p.CumulativeConversions, wantConversions[i])
		}
	}

	// Non-decreasing across consecutive periods
	for i := 1; i < len(points); i++ {
		if points[i].CumulativeAssignments < points[i-1].CumulativeAssignments {
			t.Errorf("cumulative assignments decreased at point %d", i)
		}
		if points[i].CumulativeConversions < points[i-1].CumulativeConversions {
			t.Errorf("cumulative conversions decreased at point %d", i)
		}
	}
}

func TestBuildTimeSeries_ConversionOnlyPeriod(t *testing.T) {
	// A period present only in conversions still appears, with a
	// per-period rate of 0 (no assignments that period).
	points := engine.BuildTimeSeries(
		[]store.PeriodCount{{Period: "2026-08-02", Count: 40}},
		[]store.PeriodCount{{Period: "2026-08-01", Count: 3}},
	)

	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Period != "2026-08-01" {
		t.Errorf("expected conversion-only period first, got %q", points[0].Period)
	}
	if points[0].Rate != 0 {
		t.Errorf("expected rate 0 with no assignments, got %f", points[0].Rate)
	}
	if points[0].CumulativeRate != 0 {
		t.Errorf("expected cumulative rate 0 with zero denominator, got %f", points[0].CumulativeRate)
	}
}

func TestBuildTimeSeries_Empty(t *testing.T) {
	points := engine.BuildTimeSeries(nil, nil)
	if len(points) != 0 {
		t.Errorf("expected no points for empty input, got %d", len(points))
	}
}

func TestTimeSeries_CombinedTimeline(t *testing.T) {
	src := &fakeSource{
		experiment:  newFakeExperiment([]string{"control", "variant_a"}),
		assignments: map[string]int{"control": 150, "variant_a": 150},
		conversions: map[string]int{"control": 15, "variant_a": 20},
		assignPeriods: map[string][]store.PeriodCount{
			"control":   {{Period: "2026-08-01", Count: 100}, {Period: "2026-08-02", Count: 50}},
			"variant_a": {{Period: "2026-08-02", Count: 150}},
		},
		convPeriods: map[string][]store.PeriodCount{
			"control":   {{Period: "2026-08-01", Count: 15}},
			"variant_a": {{Period: "2026-08-02", Count: 20}},
		},
	}

	series, err := newEngine(src).TimeSeries(context.Background(), "checkout-cta", store.GranularityDay)
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}

	if len(series.Variants["control"]) != 2 {
		t.Errorf("expected 2 control points, got %d", len(series.Variants["control"]))
	}
	if len(series.Combined) != 2 {
		t.Fatalf("expected 2 combined periods, got %d", len(series.Combined))
	}

	first := series.Combined[0]
	if first.Period != "2026-08-01" {
		t.Errorf("expected combined timeline to start at 2026-08-01, got %q", first.Period)
	}
	if _, ok := first.Variants["control"]; !ok {
		t.Error("combined point missing control data")
	}
	if _, ok := first.Variants["variant_a"]; ok {
		t.Error("variant_a has no data on 2026-08-01, should be absent")
	}

	second := series.Combined[1]
	if point, ok := second.Variants["variant_a"]; !ok {
		t.Error("combined point missing variant_a data")
	} else if point.Rate == 0 {
		t.Errorf("expected non-zero variant_a rate on 2026-08-02, got %f", point.Rate)
	}
}
