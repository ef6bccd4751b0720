package cp

import (
	"context"
	"testing"
	"time"

	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
)

func mustParseDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestSolveSimpleFeasible(t *testing.T) {
	req := &domain.ScheduleRequest{
		Classes: []domain.Class{
			{ID: "A"},
			{ID: "B"},
		},
		StartDate: mustParseDate(t, "2026-09-07"), // Monday
		EndDate:   mustParseDate(t, "2026-09-11"), // Friday
		Constraints: domain.SchedulingConstraints{
			MaxClassesPerDay: 8,
		},
		Weights: domain.DefaultWeightConfig(),
	}
	registry := constraints.DefaultRegistry(req)

	result := Solve(context.Background(), req, registry, Options{TimeLimit: 2 * time.Second})

	if result.Status != StatusOptimal && result.Status != StatusTimeout {
		t.Fatalf("expected optimal or timeout, got %s", result.Status)
	}
	if len(result.Assignments) != len(req.Classes) {
		t.Fatalf("expected %d assignments, got %d", len(req.Classes), len(result.Assignments))
	}
	seen := make(map[string]bool)
	for _, a := range result.Assignments {
		if seen[a.ClassID] {
			t.Fatalf("class %s assigned more than once", a.ClassID)
		}
		seen[a.ClassID] = true
	}
}

func TestSolveInfeasibleWhenConflictsCoverEverySlot(t *testing.T) {
	var allConflicts []domain.TimeSlot
	for d := 1; d <= 5; d++ {
		for p := 1; p <= domain.MaxPeriod; p++ {
			allConflicts = append(allConflicts, domain.TimeSlot{DayOfWeek: d, Period: p})
		}
	}
	req := &domain.ScheduleRequest{
		Classes: []domain.Class{
			{ID: "A", Conflicts: allConflicts},
		},
		StartDate:   mustParseDate(t, "2026-09-07"),
		EndDate:     mustParseDate(t, "2026-09-11"),
		Constraints: domain.SchedulingConstraints{MaxClassesPerDay: 8},
		Weights:     domain.DefaultWeightConfig(),
	}
	registry := constraints.DefaultRegistry(req)

	result := Solve(context.Background(), req, registry, Options{TimeLimit: time.Second})

	if result.Status != StatusInfeasible {
		t.Fatalf("expected infeasible, got %s with %d assignments", result.Status, len(result.Assignments))
	}
}

func TestSolveRespectsCancellation(t *testing.T) {
	req := &domain.ScheduleRequest{
		Classes:     []domain.Class{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		StartDate:   mustParseDate(t, "2026-09-07"),
		EndDate:     mustParseDate(t, "2026-09-11"),
		Constraints: domain.SchedulingConstraints{MaxClassesPerDay: 8},
		Weights:     domain.DefaultWeightConfig(),
	}
	registry := constraints.DefaultRegistry(req)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Solve(ctx, req, registry, Options{})
	if result.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", result.Status)
	}
}
