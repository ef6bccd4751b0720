package driver

import (
	"context"
	"testing"
	"time"

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

func twoClassRequest(t *testing.T) *domain.ScheduleRequest {
	return &domain.ScheduleRequest{
		Classes: []domain.Class{
			{ID: "A"},
			{ID: "B"},
		},
		StartDate: mustParseDate(t, "2026-09-07"),
		EndDate:   mustParseDate(t, "2026-09-11"),
		Weights:   domain.DefaultWeightConfig(),
	}
}

func TestBuildRejectsEmptyRequest(t *testing.T) {
	req := &domain.ScheduleRequest{StartDate: mustParseDate(t, "2026-09-07"), EndDate: mustParseDate(t, "2026-09-11")}
	_, err := NewBuilder(req).Build()
	if err == nil {
		t.Fatal("expected a ConfigError for a request with no classes")
	}
}

func TestBuildRejectsInvertedWeeklyBounds(t *testing.T) {
	req := twoClassRequest(t)
	req.Constraints.MinClassesPerWeek = 5
	req.Constraints.MaxClassesPerWeek = 2
	_, err := NewBuilder(req).Build()
	if err == nil {
		t.Fatal("expected a ConfigError when min_per_week exceeds max_per_week")
	}
}

func TestAutoStrategyPicksCPForASmallSimpleRequest(t *testing.T) {
	req := twoClassRequest(t)
	d, err := NewBuilder(req).Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if got := d.resolveStrategy(); got != StrategyCP {
		t.Fatalf("expected auto strategy to pick cp for a trivial request, got %s", got)
	}
}

func TestAutoStrategyPicksCPThenGAForALargeRoster(t *testing.T) {
	classes := make([]domain.Class, 25)
	for i := range classes {
		classes[i] = domain.Class{ID: string(rune('A' + i))}
	}
	req := &domain.ScheduleRequest{
		Classes:   classes,
		StartDate: mustParseDate(t, "2026-09-07"),
		EndDate:   mustParseDate(t, "2026-09-25"),
		Weights:   domain.DefaultWeightConfig(),
	}
	d, err := NewBuilder(req).Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if got := d.resolveStrategy(); got != StrategyCPThenGA {
		t.Fatalf("expected auto strategy to pick cp_then_ga for a 25-class roster, got %s", got)
	}
}

func TestSolveCPFindsAFeasibleTrivialSchedule(t *testing.T) {
	req := twoClassRequest(t)
	d, err := NewBuilder(req).WithStrategy(StrategyCP).Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	result, err := d.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected solve error: %v", err)
	}
	if !result.Metadata.Feasible {
		t.Fatalf("expected a feasible result, got status %s", result.Metadata.Status)
	}
	if len(result.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(result.Assignments))
	}
}

func TestSolveCPReportsInfeasibleWhenConflictsCoverEverySlot(t *testing.T) {
	req := twoClassRequest(t)
	var conflicts []domain.TimeSlot
	for day := 1; day <= 5; day++ {
		for period := 1; period <= domain.MaxPeriod; period++ {
			conflicts = append(conflicts, domain.TimeSlot{DayOfWeek: day, Period: period})
		}
	}
	req.Classes[0].Conflicts = conflicts
	d, err := NewBuilder(req).WithStrategy(StrategyCP).Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	result, err := d.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected solve error: %v", err)
	}
	if result.Metadata.Feasible {
		t.Fatal("expected infeasible result when one class has no legal slot")
	}
	if result.Metadata.Status != "infeasible" {
		t.Fatalf("expected infeasible status, got %s", result.Metadata.Status)
	}
}

func TestSolveGAFindsAFeasibleTrivialSchedule(t *testing.T) {
	req := twoClassRequest(t)
	cfg := Config{
		Strategy: StrategyGA,
		Seed:     7,
		TestMode: true,
		Genetic:  GeneticConfig{PopulationSize: 20, EliteSize: 2, MaxGenerations: 30},
	}
	d, err := NewBuilder(req).WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	result, err := d.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected solve error: %v", err)
	}
	if !result.Metadata.Feasible {
		t.Fatalf("expected a feasible result, got status %s violations %v", result.Metadata.Status, result.Metadata.Violations)
	}
}

func TestSolveCPThenGASeedsFromTheCPIncumbent(t *testing.T) {
	req := twoClassRequest(t)
	cfg := Config{
		Strategy: StrategyCPThenGA,
		Seed:     3,
		TestMode: true,
		Genetic:  GeneticConfig{PopulationSize: 20, EliteSize: 2, MaxGenerations: 20},
	}
	d, err := NewBuilder(req).WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	result, err := d.Solve(context.Background())
	if err != nil {
		t.Fatalf("unexpected solve error: %v", err)
	}
	if result.Metadata.Solver != "cp->ga" {
		t.Fatalf("expected solver label cp->ga, got %s", result.Metadata.Solver)
	}
	if !result.Metadata.Feasible {
		t.Fatalf("expected a feasible result, got status %s", result.Metadata.Status)
	}
}

func TestSolveIsDeterministicGivenTheSameSeed(t *testing.T) {
	req := twoClassRequest(t)
	run := func() Result {
		cfg := Config{
			Strategy: StrategyGA, Seed: 11, TestMode: true,
			Genetic: GeneticConfig{PopulationSize: 16, EliteSize: 2, MaxGenerations: 20},
		}
		d, err := NewBuilder(req).WithConfig(cfg).Build()
		if err != nil {
			t.Fatalf("unexpected build error: %v", err)
		}
		r, err := d.Solve(context.Background())
		if err != nil {
			t.Fatalf("unexpected solve error: %v", err)
		}
		return r
	}
	a, b := run(), run()
	if len(a.Assignments) != len(b.Assignments) {
		t.Fatalf("expected the same assignment count across runs with the same seed")
	}
	for i := range a.Assignments {
		if a.Assignments[i] != b.Assignments[i] {
			t.Fatalf("same seed produced different assignments at index %d: %+v vs %+v", i, a.Assignments[i], b.Assignments[i])
		}
	}
}
