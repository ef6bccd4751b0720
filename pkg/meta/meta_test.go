package meta

import (
	"context"
	"testing"
	"time"

	"github.com/danfeder/classroom-scheduler/pkg/domain"
)

func smallRequest() *domain.ScheduleRequest {
	start, _ := time.Parse("2006-01-02", "2026-09-07")
	end, _ := time.Parse("2006-01-02", "2026-09-11")
	return &domain.ScheduleRequest{
		Classes: []domain.Class{
			{ID: "A", PreferredPeriods: []domain.WeightedSlot{{Slot: domain.TimeSlot{DayOfWeek: 1, Period: 1}, Weight: 1}}},
			{ID: "B"},
		},
		StartDate: start,
		EndDate:   end,
		Weights:   domain.DefaultWeightConfig(),
	}
}

func TestRunProducesAFinitelyScoredWeightConfig(t *testing.T) {
	req := smallRequest()
	result := Run(context.Background(), req, domain.DefaultWeightConfig(), Config{
		PopulationSize: 4, Generations: 2, InnerPopulation: 10, InnerGenerations: 5,
		InnerTimeLimit: 2 * time.Second, Seed: 1,
	})
	if result.Fitness < 0 {
		t.Fatalf("expected a non-negative fitness for a trivially feasible request, got %v", result.Fitness)
	}
	if result.Best.AvoidPeriods > 0 {
		t.Fatalf("AvoidPeriods should stay <= 0 by convention, got %d", result.Best.AvoidPeriods)
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	req := smallRequest()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := Run(ctx, req, domain.DefaultWeightConfig(), Config{
		PopulationSize: 4, Generations: 5, InnerPopulation: 10, InnerGenerations: 5, Seed: 2,
	})
	_ = result // should return promptly with whatever the initial population scored
}
