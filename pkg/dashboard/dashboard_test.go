package dashboard

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/danfeder/classroom-scheduler/pkg/domain"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestAnalyzePerfectlyBalancedSchedule(t *testing.T) {
	req := &domain.ScheduleRequest{
		Classes: []domain.Class{{ID: "A"}, {ID: "B"}},
	}
	assignments := []domain.Assignment{
		{ClassID: "A", Date: mustDate(t, "2026-09-07"), TimeSlot: domain.TimeSlot{DayOfWeek: 1, Period: 1}},
		{ClassID: "B", Date: mustDate(t, "2026-09-08"), TimeSlot: domain.TimeSlot{DayOfWeek: 2, Period: 1}},
	}
	m := Analyze(req, assignments)
	if m.WorkloadBalance != 100 {
		t.Fatalf("expected perfectly even workload to score 100, got %v", m.WorkloadBalance)
	}
	if !math.IsNaN(m.PreferenceSatisfaction) {
		t.Fatalf("expected NaN preference satisfaction when no class declared a preference, got %v", m.PreferenceSatisfaction)
	}
}

func TestAnalyzePreferenceSatisfaction(t *testing.T) {
	req := &domain.ScheduleRequest{
		Classes: []domain.Class{
			{ID: "A", PreferredPeriods: []domain.WeightedSlot{{Slot: domain.TimeSlot{DayOfWeek: 1, Period: 1}, Weight: 1}}},
			{ID: "B", PreferredPeriods: []domain.WeightedSlot{{Slot: domain.TimeSlot{DayOfWeek: 1, Period: 3}, Weight: 1}}},
		},
	}
	assignments := []domain.Assignment{
		{ClassID: "A", Date: mustDate(t, "2026-09-07"), TimeSlot: domain.TimeSlot{DayOfWeek: 1, Period: 1}},
		{ClassID: "B", Date: mustDate(t, "2026-09-07"), TimeSlot: domain.TimeSlot{DayOfWeek: 1, Period: 2}},
	}
	m := Analyze(req, assignments)
	if m.PreferenceSatisfaction != 50 {
		t.Fatalf("expected 50%% preference satisfaction (1 of 2 matched), got %v", m.PreferenceSatisfaction)
	}
}

func TestCompareFlagsImprovement(t *testing.T) {
	baseline := QualityMetrics{OverallScore: 60}
	comparison := QualityMetrics{OverallScore: 75}
	results := Compare(baseline, comparison)
	for _, r := range results {
		if r.Metric == "overall_score" {
			if !r.Improvement {
				t.Fatal("expected overall_score to be flagged as an improvement")
			}
			if r.Difference != 15 {
				t.Fatalf("expected a difference of 15, got %v", r.Difference)
			}
			return
		}
	}
	t.Fatal("overall_score missing from comparison results")
}

func TestHistoryEvictsOldestPastCapacity(t *testing.T) {
	h := NewHistory()
	for i := 0; i < HistoryCapacity+5; i++ {
		h.Record(RunRecord{ID: string(rune('a' + i%26))})
	}
	all := h.All()
	if len(all) != HistoryCapacity {
		t.Fatalf("expected history capped at %d records, got %d", HistoryCapacity, len(all))
	}
}

func TestDashboardAnalyzeCompareAndChart(t *testing.T) {
	req := &domain.ScheduleRequest{Classes: []domain.Class{{ID: "A", Grade: "3"}, {ID: "B", Grade: "4"}}}
	d := New(req)
	d.Analyze("run1", []domain.Assignment{
		{ClassID: "A", Date: mustDate(t, "2026-09-07"), TimeSlot: domain.TimeSlot{DayOfWeek: 1, Period: 1}},
	})
	d.Analyze("run2", []domain.Assignment{
		{ClassID: "A", Date: mustDate(t, "2026-09-07"), TimeSlot: domain.TimeSlot{DayOfWeek: 1, Period: 1}},
		{ClassID: "B", Date: mustDate(t, "2026-09-08"), TimeSlot: domain.TimeSlot{DayOfWeek: 2, Period: 2}},
	})

	if _, err := d.Compare("run1", "run2"); err != nil {
		t.Fatalf("unexpected compare error: %v", err)
	}
	if _, err := d.Compare("run1", "missing"); err == nil {
		t.Fatal("expected an error comparing against an unknown run id")
	}

	bar, err := d.Chart("run2", ChartGrade)
	if err != nil {
		t.Fatalf("unexpected chart error: %v", err)
	}
	var buf bytes.Buffer
	if err := Render(bar, &buf); err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty rendered chart HTML")
	}

	if len(d.History()) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(d.History()))
	}
}
