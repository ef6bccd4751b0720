// Package ga implements the adaptive-elitist genetic algorithm: a
// population of full-schedule chromosomes evolved by tournament
// selection, uniform crossover and gene mutation, with a controller
// that adapts mutation/crossover rates to the population's diversity
// and improvement rate. Parallel fitness evaluation follows the
// teacher's worker-pool-over-workChan pattern from algorithms/nsga2.go.
package ga

import (
	"math"
	"time"

	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"golang.org/x/exp/rand"
)

func dateFromDay(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC()
}

// RandomGene produces a legal-or-best-effort Assignment for class,
// drawing uniformly among its eligible (date, period) slots that don't
// violate the class's own Conflicts/RequiredPeriods; if no slot
// satisfies both, it falls back to any (date, period) with a correct
// weekday so the chromosome stays well-formed and lets Validate report
// the remaining violation instead of the generator silently skipping
// the class.
func RandomGene(rng *rand.Rand, req *domain.ScheduleRequest, class *domain.Class, dates []int64) domain.Assignment {
	type candidate struct {
		date   int64
		period int
	}
	var legal []candidate
	var fallback []candidate
	for _, day := range dates {
		date := dateFromDay(day)
		weekday := int(date.Weekday())
		for period := 1; period <= domain.MaxPeriod; period++ {
			slot := domain.TimeSlot{DayOfWeek: weekday, Period: period}
			fallback = append(fallback, candidate{day, period})
			if class.ConflictsWith(slot) {
				continue
			}
			if required, satisfied := class.RequiresDate(date, period); required && !satisfied {
				continue
			}
			if avail := req.AvailabilityFor(date); avail != nil && avail.IsUnavailable(slot) {
				continue
			}
			legal = append(legal, candidate{day, period})
		}
	}
	pool := legal
	if len(pool) == 0 {
		pool = fallback
	}
	if len(pool) == 0 {
		return domain.Assignment{ClassID: class.ID}
	}
	pick := pool[rng.Intn(len(pool))]
	date := dateFromDay(pick.date)
	return domain.Assignment{
		ClassID:  class.ID,
		Date:     date,
		TimeSlot: domain.TimeSlot{DayOfWeek: int(date.Weekday()), Period: pick.period},
	}
}

// RandomChromosome builds one full-schedule candidate with one gene
// per class in req.Classes order.
func RandomChromosome(rng *rand.Rand, req *domain.ScheduleRequest, dates []int64, createdAt uint64) *domain.Chromosome {
	genes := make([]domain.Assignment, len(req.Classes))
	for i := range req.Classes {
		genes[i] = RandomGene(rng, req, &req.Classes[i], dates)
	}
	return domain.NewChromosome(genes, createdAt)
}

// Evaluate computes a chromosome's fitness: softScore of its genes
// (preferred/avoid period matches weighted by req.Weights), minus a
// steep penalty per error- or critical-severity violation so infeasible
// chromosomes always rank below feasible ones of any quality, and
// caches both on the chromosome.
func Evaluate(c *domain.Chromosome, req *domain.ScheduleRequest, registry *constraints.Registry) float64 {
	ctx := constraints.NewContext(req)
	violations := registry.ValidateAll(c.Genes, ctx)

	hardCount := 0
	soft := 0.0
	for _, v := range violations {
		if isHardSeverity(v.Severity) {
			hardCount++
		}
	}
	soft = softScore(c.Genes, req)

	// K: large enough that any feasible chromosome outranks any
	// infeasible one regardless of soft score, per spec §4.3.1.
	const hardPenalty = 1e6
	fitness := soft - float64(hardCount)*hardPenalty
	c.SetFitness(fitness)
	c.ConstraintViolations = hardCount
	return fitness
}

func isHardSeverity(s domain.Severity) bool {
	return s == domain.SeverityCritical || s == domain.SeverityError
}

// softScore sums each gene's preferred- and avoid-period matches,
// weighted by the request's weight config. It covers only those two
// terms: the CP objective's earlier-dates, day-usage and final-week
// terms, and any relaxation-level decay, are not included.
func softScore(genes []domain.Assignment, req *domain.ScheduleRequest) float64 {
	byID := make(map[string]*domain.Class, len(req.Classes))
	for i := range req.Classes {
		byID[req.Classes[i].ID] = &req.Classes[i]
	}
	w := req.Weights
	score := 0.0
	for _, a := range genes {
		class := byID[a.ClassID]
		if class == nil {
			continue
		}
		for _, pref := range class.PreferredPeriods {
			if pref.Slot == a.TimeSlot {
				score += float64(w.PreferredPeriods) * pref.Weight
			}
		}
		for _, avoid := range class.AvoidPeriods {
			if avoid.Slot == a.TimeSlot {
				score += float64(w.AvoidPeriods) * avoid.Weight
			}
		}
	}
	return score
}

// normalizeDiversity maps a raw mean-Hamming-distance into 0..1 using
// the maximum possible distance (population size-independent), so the
// adaptive controller can compare diversity across runs of different
// sizes.
func normalizeDiversity(raw, maxPossible float64) float64 {
	if maxPossible == 0 {
		return 0
	}
	return math.Min(raw/maxPossible, 1)
}
