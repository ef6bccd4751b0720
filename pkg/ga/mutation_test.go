package ga

import (
	"testing"
	"time"

	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"golang.org/x/exp/rand"
)

func weekRequest() *domain.ScheduleRequest {
	start, _ := time.Parse("2006-01-02", "2026-09-07") // Monday
	end, _ := time.Parse("2006-01-02", "2026-09-11")   // Friday
	return &domain.ScheduleRequest{
		Classes:   []domain.Class{{ID: "A"}, {ID: "B"}},
		StartDate: start,
		EndDate:   end,
		Weights:   domain.DefaultWeightConfig(),
	}
}

func TestMutateRespectsRateOfZero(t *testing.T) {
	req := weekRequest()
	dates := NewModelDates(req)
	rng := rand.New(rand.NewSource(1))
	c := RandomChromosome(rng, req, dates, 0)
	before := append([]domain.Assignment(nil), c.Genes...)

	Mutate(rng, c, req, dates, 0)

	for i := range c.Genes {
		if c.Genes[i] != before[i] {
			t.Fatalf("gene %d changed despite rate=0", i)
		}
	}
}

func TestRandomGeneAvoidsConflictsWhenPossible(t *testing.T) {
	req := weekRequest()
	// Force every slot except Friday period 1 to conflict for class A.
	var conflicts []domain.TimeSlot
	for d := 1; d <= 5; d++ {
		for p := 1; p <= domain.MaxPeriod; p++ {
			if d == 5 && p == 1 {
				continue
			}
			conflicts = append(conflicts, domain.TimeSlot{DayOfWeek: d, Period: p})
		}
	}
	req.Classes[0].Conflicts = conflicts
	dates := NewModelDates(req)
	rng := rand.New(rand.NewSource(2))

	for trial := 0; trial < 20; trial++ {
		gene := RandomGene(rng, req, &req.Classes[0], dates)
		if req.Classes[0].ConflictsWith(gene.TimeSlot) {
			t.Fatalf("RandomGene produced a conflicting slot %+v", gene.TimeSlot)
		}
	}
}
