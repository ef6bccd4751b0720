package ga

import (
	"context"
	"sort"
	"time"

	"github.com/danfeder/classroom-scheduler/internal/telemetry"
	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"golang.org/x/exp/rand"
)

// TerminationReason names which of spec §4.3.6's stop conditions fired.
type TerminationReason string

const (
	TerminationMaxGenerations TerminationReason = "max_generations"
	TerminationTimeLimit      TerminationReason = "time_limit"
	TerminationPlateau        TerminationReason = "plateau"
	TerminationCancelled      TerminationReason = "cancelled"
)

// GenerationStats is the per-generation telemetry spec §4.3.7 asks for,
// consumed by the experiment harness and exported as Prometheus gauges.
type GenerationStats struct {
	Generation    int
	BestFitness   float64
	AvgFitness    float64
	WorstFitness  float64
	Diversity     float64
	MutationRate  float64
	CrossoverRate float64
	Violations    map[domain.Severity]int
	Duration      time.Duration
}

// Config configures one Optimizer run.
type Config struct {
	PopulationSize  int
	EliteSize       int
	MutationRate    float64
	CrossoverRate   float64
	MaxGenerations  int
	TimeLimit       time.Duration
	PlateauWindow   int // default 30 if zero
	TournamentSize  int // default DefaultTournamentSize if zero
	Adaptive        bool
	Parallel        bool
	TestMode        bool // forces sequential evaluation, for deterministic tests
	Seed            uint64
	CollectStats    bool
	SeedPopulation  []*domain.Chromosome // optional: cp_then_ga warm start
}

// Result is what Run returns: the best chromosome found, why the search
// stopped, and per-generation stats if requested.
type Result struct {
	Best       *domain.Chromosome
	Reason     TerminationReason
	Generation int
	Stats      []GenerationStats
}

// Optimizer runs the adaptive-elitist GA described in spec §4.3 over a
// single ScheduleRequest and constraint registry.
type Optimizer struct {
	Req      *domain.ScheduleRequest
	Registry *constraints.Registry
	Config   Config
	Metrics  *telemetry.Metrics
	RunID    string
}

// Run executes the generational loop until one of the spec's
// termination conditions fires or ctx is cancelled.
func (o *Optimizer) Run(ctx context.Context) Result {
	cfg := o.Config
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = 100
	}
	if cfg.TournamentSize <= 0 {
		cfg.TournamentSize = DefaultTournamentSize
	}
	if cfg.PlateauWindow <= 0 {
		cfg.PlateauWindow = 30
	}
	if cfg.MutationRate <= 0 {
		cfg.MutationRate = DefaultMutationRate
	}
	if cfg.CrossoverRate <= 0 {
		cfg.CrossoverRate = DefaultCrossoverRate
	}

	logger := telemetry.LoggerFor(ctx, "ga")
	rng := rand.New(rand.NewSource(cfg.Seed))
	dates := NewModelDates(o.Req)
	var counter uint64

	evaluator := &Evaluator{
		Req: o.Req, Registry: o.Registry, Parallel: cfg.Parallel,
		TestMode: cfg.TestMode, Metrics: o.Metrics, RunID: o.RunID,
	}

	pop := o.seedPopulation(rng, dates, &counter, cfg)
	evaluator.Evaluate(pop.Chromosomes)
	pop.Best = bestOf(pop.Chromosomes)

	controller := NewAdaptiveController(cfg.MutationRate, cfg.CrossoverRate)
	var statsHistory []GenerationStats
	var plateauBest float64
	plateauCount := 0
	hasPlateauBest := false
	var deadline time.Time
	if cfg.TimeLimit > 0 {
		deadline = time.Now().Add(cfg.TimeLimit)
	}

	for gen := 0; ; gen++ {
		select {
		case <-ctx.Done():
			return o.finish(pop, TerminationCancelled, gen, statsHistory)
		default:
		}
		if cfg.MaxGenerations > 0 && gen >= cfg.MaxGenerations {
			return o.finish(pop, TerminationMaxGenerations, gen, statsHistory)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return o.finish(pop, TerminationTimeLimit, gen, statsHistory)
		}

		genStart := time.Now()
		_, genSpan := telemetry.StartSpan(ctx, "ga.generation")

		mutationRate, crossoverRate := cfg.MutationRate, cfg.CrossoverRate
		if cfg.Adaptive {
			mutationRate, crossoverRate = controller.MutationRate, controller.CrossoverRate
		}

		sorted := sortedByFitness(pop.Chromosomes)
		elite := cloneTop(sorted, cfg.EliteSize, &counter)

		offspring := make([]*domain.Chromosome, 0, cfg.PopulationSize)
		offspring = append(offspring, elite...)
		for len(offspring) < cfg.PopulationSize {
			parentA := TournamentSelect(rng, pop.Chromosomes, cfg.TournamentSize)
			parentB := TournamentSelect(rng, pop.Chromosomes, cfg.TournamentSize)
			var childA, childB *domain.Chromosome
			if rng.Float64() < crossoverRate {
				childA = UniformCrossover(rng, parentA, parentB, nextID(&counter))
				childB = UniformCrossover(rng, parentB, parentA, nextID(&counter))
			} else {
				childA = parentA.Clone(nextID(&counter))
				childB = parentB.Clone(nextID(&counter))
			}
			Mutate(rng, childA, o.Req, dates, mutationRate)
			Mutate(rng, childB, o.Req, dates, mutationRate)
			offspring = append(offspring, childA, childB)
		}
		offspring = offspring[:cfg.PopulationSize]

		evaluator.Evaluate(offspring)

		newPop := &domain.Population{Chromosomes: offspring, Generation: gen + 1}
		newPop.Best = bestOf(offspring)
		if pop.Best != nil {
			if bf, _ := pop.Best.Fitness(); newPop.Best == nil {
				newPop.Best = pop.Best
			} else if nf, _ := newPop.Best.Fitness(); bf > nf {
				newPop.Best = pop.Best
			}
		}
		pop = newPop

		diversity := Diversity(pop.Chromosomes)
		bestFitness, _ := pop.Best.Fitness()

		if cfg.Adaptive {
			if inject := controller.Update(bestFitness, diversity); inject {
				diversityInjection(rng, pop, o.Req, dates, &counter, evaluator)
			}
		}

		if o.Metrics != nil {
			o.recordMetrics(pop, mutationRate, crossoverRate, genStart)
		}
		if cfg.CollectStats {
			statsHistory = append(statsHistory, o.buildStats(gen+1, pop, mutationRate, crossoverRate, genStart))
		}

		logger.V(2).Info("generation complete", "generation", gen+1, "bestFitness", bestFitness, "diversity", diversity)
		genSpan.End()

		if !hasPlateauBest || bestFitness > plateauBest {
			plateauBest = bestFitness
			hasPlateauBest = true
			plateauCount = 0
		} else {
			plateauCount++
		}
		feasible := pop.Best.ConstraintViolations == 0
		if plateauCount >= cfg.PlateauWindow && feasible {
			return o.finish(pop, TerminationPlateau, gen+1, statsHistory)
		}
	}
}

func (o *Optimizer) finish(pop *domain.Population, reason TerminationReason, gen int, stats []GenerationStats) Result {
	return Result{Best: pop.Best, Reason: reason, Generation: gen, Stats: stats}
}

func (o *Optimizer) seedPopulation(rng *rand.Rand, dates []int64, counter *uint64, cfg Config) *domain.Population {
	if len(cfg.SeedPopulation) > 0 {
		chromosomes := make([]*domain.Chromosome, 0, cfg.PopulationSize)
		chromosomes = append(chromosomes, cfg.SeedPopulation...)
		for len(chromosomes) < cfg.PopulationSize {
			base := cfg.SeedPopulation[rng.Intn(len(cfg.SeedPopulation))]
			clone := base.Clone(nextID(counter))
			Mutate(rng, clone, o.Req, dates, 0.2)
			chromosomes = append(chromosomes, clone)
		}
		return &domain.Population{Chromosomes: chromosomes[:cfg.PopulationSize]}
	}
	return NewPopulation(rng, o.Req, o.Registry, dates, cfg.PopulationSize, counter)
}

func (o *Optimizer) recordMetrics(pop *domain.Population, mutationRate, crossoverRate float64, genStart time.Time) {
	best, avg, worst := fitnessStats(pop.Chromosomes)
	o.Metrics.GenerationBestFitness.WithLabelValues(o.RunID).Set(best)
	o.Metrics.GenerationAvgFitness.WithLabelValues(o.RunID).Set(avg)
	_ = worst
	o.Metrics.GenerationDiversity.WithLabelValues(o.RunID).Set(Diversity(pop.Chromosomes))
	o.Metrics.GenerationMutationRate.WithLabelValues(o.RunID).Set(mutationRate)
	o.Metrics.GenerationCrossoverRate.WithLabelValues(o.RunID).Set(crossoverRate)
	o.Metrics.GenerationDuration.WithLabelValues(o.RunID).Observe(time.Since(genStart).Seconds())
}

func (o *Optimizer) buildStats(gen int, pop *domain.Population, mutationRate, crossoverRate float64, genStart time.Time) GenerationStats {
	best, avg, worst := fitnessStats(pop.Chromosomes)
	ctx := constraints.NewContext(o.Req)
	violations := make(map[domain.Severity]int)
	for _, v := range o.Registry.ValidateAll(pop.Best.Genes, ctx) {
		violations[v.Severity]++
	}
	return GenerationStats{
		Generation: gen, BestFitness: best, AvgFitness: avg, WorstFitness: worst,
		Diversity: Diversity(pop.Chromosomes), MutationRate: mutationRate,
		CrossoverRate: crossoverRate, Violations: violations, Duration: time.Since(genStart),
	}
}

func fitnessStats(chromosomes []*domain.Chromosome) (best, avg, worst float64) {
	if len(chromosomes) == 0 {
		return 0, 0, 0
	}
	sum := 0.0
	first := true
	for _, c := range chromosomes {
		f, ok := c.Fitness()
		if !ok {
			continue
		}
		sum += f
		if first {
			best, worst = f, f
			first = false
			continue
		}
		if f > best {
			best = f
		}
		if f < worst {
			worst = f
		}
	}
	return best, sum / float64(len(chromosomes)), worst
}

func sortedByFitness(chromosomes []*domain.Chromosome) []*domain.Chromosome {
	sorted := make([]*domain.Chromosome, len(chromosomes))
	copy(sorted, chromosomes)
	sort.SliceStable(sorted, func(i, j int) bool { return better(sorted[i], sorted[j]) })
	return sorted
}

func cloneTop(sorted []*domain.Chromosome, n int, counter *uint64) []*domain.Chromosome {
	if n > len(sorted) {
		n = len(sorted)
	}
	elite := make([]*domain.Chromosome, n)
	for i := 0; i < n; i++ {
		clone := sorted[i].Clone(nextID(counter))
		clone.SetFitness(mustFitness(sorted[i]))
		clone.ConstraintViolations = sorted[i].ConstraintViolations
		elite[i] = clone
	}
	return elite
}

func mustFitness(c *domain.Chromosome) float64 {
	f, _ := c.Fitness()
	return f
}

// diversityInjection replaces the worst 10% of the population with
// fresh random chromosomes, per spec §4.3.4's plateau response.
func diversityInjection(rng *rand.Rand, pop *domain.Population, req *domain.ScheduleRequest, dates []int64, counter *uint64, evaluator *Evaluator) {
	sorted := sortedByFitness(pop.Chromosomes)
	n := len(sorted) / 10
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		idx := len(sorted) - 1 - i
		sorted[idx] = RandomChromosome(rng, req, dates, nextID(counter))
	}
	evaluator.Evaluate(sorted)
	pop.Chromosomes = sorted
	pop.Best = bestOf(pop.Chromosomes)
}

// NewModelDates returns the unix-day indices of eligible weekdays in
// req's range, in the same order pkg/cp's Model.Dates() would produce,
// without creating a CP model (the GA doesn't need one).
func NewModelDates(req *domain.ScheduleRequest) []int64 {
	var dates []int64
	for d := req.StartDate; !d.After(req.EndDate); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, d.Unix()/86400)
	}
	return dates
}
