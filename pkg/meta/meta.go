// Package meta implements the optional outer GA described in spec
// §4.4: its genome is a WeightConfig, and a genome's fitness is the
// inner pkg/ga Optimizer's best feasible fitness on a representative
// request after a short time budget. It runs its own tournament
// selection over Genomes and uses pkg/ga only as the inner optimizer,
// the way the teacher's NSGA-II is problem-parametric via
// framework.Problem (here the "problem" is always "evolve weights",
// parametrized by the representative request).
package meta

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/danfeder/classroom-scheduler/internal/telemetry"
	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"github.com/danfeder/classroom-scheduler/pkg/ga"
	"golang.org/x/exp/rand"
)

// Genome is one candidate WeightConfig plus its evaluated fitness.
type Genome struct {
	Weights domain.WeightConfig
	Fitness float64
	hasFit  bool
}

// Config configures one meta-optimization run.
type Config struct {
	PopulationSize  int
	Generations     int
	TournamentSize  int
	InnerTimeLimit  time.Duration
	InnerPopulation int // population size for the inner GA probe
	InnerGenerations int
	Seed            int64
	// MutationSigmaFraction is the Gaussian mutation's standard
	// deviation as a fraction of each weight's own current magnitude,
	// with a floor of 1 (default 0.1).
	MutationSigmaFraction float64
}

// Result is the best WeightConfig the meta-GA found and its fitness.
type Result struct {
	Best    domain.WeightConfig
	Fitness float64
}

// Run evolves WeightConfig genomes against req, starting from seed
// (the request's own weights, typically DefaultWeightConfig()).
func Run(ctx context.Context, req *domain.ScheduleRequest, seed domain.WeightConfig, cfg Config) Result {
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = 12
	}
	if cfg.Generations <= 0 {
		cfg.Generations = 10
	}
	if cfg.TournamentSize <= 0 {
		cfg.TournamentSize = 3
	}
	if cfg.InnerPopulation <= 0 {
		cfg.InnerPopulation = 40
	}
	if cfg.InnerGenerations <= 0 {
		cfg.InnerGenerations = 30
	}
	if cfg.MutationSigmaFraction <= 0 {
		cfg.MutationSigmaFraction = 0.1
	}
	if cfg.InnerTimeLimit <= 0 {
		cfg.InnerTimeLimit = 30 * time.Second
	}

	logger := telemetry.LoggerFor(ctx, "meta")
	rng := rand.New(rand.NewSource(uint64(cfg.Seed)))

	population := make([]*Genome, cfg.PopulationSize)
	population[0] = &Genome{Weights: seed}
	for i := 1; i < cfg.PopulationSize; i++ {
		population[i] = &Genome{Weights: jitter(rng, seed, cfg.MutationSigmaFraction)}
	}
	for _, g := range population {
		evaluate(ctx, g, req, cfg)
	}

	best := bestOf(population)
	for gen := 0; gen < cfg.Generations; gen++ {
		select {
		case <-ctx.Done():
			return Result{Best: best.Weights, Fitness: best.Fitness}
		default:
		}

		next := make([]*Genome, 0, cfg.PopulationSize)
		next = append(next, &Genome{Weights: best.Weights, Fitness: best.Fitness, hasFit: true}) // elitism of size 1
		for len(next) < cfg.PopulationSize {
			parentA := tournamentSelect(rng, population, cfg.TournamentSize)
			parentB := tournamentSelect(rng, population, cfg.TournamentSize)
			child := &Genome{Weights: arithmeticCrossover(rng, parentA.Weights, parentB.Weights)}
			child.Weights = gaussianMutate(rng, child.Weights, cfg.MutationSigmaFraction)
			next = append(next, child)
		}
		for _, g := range next[1:] {
			evaluate(ctx, g, req, cfg)
		}
		population = next
		if candidate := bestOf(population); candidate.Fitness > best.Fitness {
			best = candidate
		}
		logger.V(1).Info("meta generation complete", "generation", gen+1, "bestFitness", best.Fitness)
	}

	return Result{Best: best.Weights, Fitness: best.Fitness}
}

func evaluate(ctx context.Context, g *Genome, req *domain.ScheduleRequest, cfg Config) {
	if g.hasFit {
		return
	}
	weighted := *req
	weighted.Weights = g.Weights
	registry := constraints.DefaultRegistry(&weighted)
	opt := &ga.Optimizer{
		Req:      &weighted,
		Registry: registry,
		Metrics:  telemetry.Default(),
		RunID:    fmt.Sprintf("meta-%d", hashWeights(g.Weights)),
		Config: ga.Config{
			PopulationSize: cfg.InnerPopulation,
			EliteSize:      maxInt(2, cfg.InnerPopulation/10),
			MaxGenerations: cfg.InnerGenerations,
			TimeLimit:      cfg.InnerTimeLimit,
			Adaptive:       true,
			TestMode:       true,
			Seed:           uint64(int64(hashWeights(g.Weights))),
		},
	}
	result := opt.Run(ctx)
	fitness := math.Inf(-1)
	if result.Best != nil && result.Best.ConstraintViolations == 0 {
		fitness, _ = result.Best.Fitness()
	}
	g.Fitness = fitness
	g.hasFit = true
}

func hashWeights(w domain.WeightConfig) int64 {
	return int64(w.FinalWeekCompression)*1_000_003 +
		int64(w.DayUsage)*10_007 +
		int64(w.DailyBalance)*1009 +
		int64(w.PreferredPeriods)*101 +
		int64(w.Distribution)*31 +
		int64(w.AvoidPeriods)*7 +
		int64(w.EarlierDates)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func bestOf(population []*Genome) *Genome {
	best := population[0]
	for _, g := range population[1:] {
		if g.Fitness > best.Fitness {
			best = g
		}
	}
	return best
}

func tournamentSelect(rng *rand.Rand, population []*Genome, k int) *Genome {
	if k <= 0 || k > len(population) {
		k = len(population)
	}
	best := population[rng.Intn(len(population))]
	for i := 1; i < k; i++ {
		challenger := population[rng.Intn(len(population))]
		if challenger.Fitness > best.Fitness {
			best = challenger
		}
	}
	return best
}

// arithmeticCrossover averages each weight between the two parents,
// per spec §4.4.
func arithmeticCrossover(rng *rand.Rand, a, b domain.WeightConfig) domain.WeightConfig {
	avg := func(x, y int) int { return (x + y) / 2 }
	return domain.WeightConfig{
		FinalWeekCompression: avg(a.FinalWeekCompression, b.FinalWeekCompression),
		DayUsage:             avg(a.DayUsage, b.DayUsage),
		DailyBalance:         avg(a.DailyBalance, b.DailyBalance),
		PreferredPeriods:     avg(a.PreferredPeriods, b.PreferredPeriods),
		Distribution:         avg(a.Distribution, b.Distribution),
		AvoidPeriods:         avg(a.AvoidPeriods, b.AvoidPeriods),
		EarlierDates:         avg(a.EarlierDates, b.EarlierDates),
	}
}

// gaussianMutate perturbs every weight by noise drawn from N(0, sigma)
// where sigma is sigmaFraction of the weight's own magnitude (a
// minimum absolute sigma keeps zero-valued weights mutable).
func gaussianMutate(rng *rand.Rand, w domain.WeightConfig, sigmaFraction float64) domain.WeightConfig {
	perturb := func(v int) int {
		sigma := math.Max(math.Abs(float64(v))*sigmaFraction, 1)
		return v + int(math.Round(rng.NormFloat64()*sigma))
	}
	return domain.WeightConfig{
		FinalWeekCompression: clampNonNegative(perturb(w.FinalWeekCompression)),
		DayUsage:             clampNonNegative(perturb(w.DayUsage)),
		DailyBalance:         clampNonNegative(perturb(w.DailyBalance)),
		PreferredPeriods:     clampNonNegative(perturb(w.PreferredPeriods)),
		Distribution:         clampNonNegative(perturb(w.Distribution)),
		AvoidPeriods:         clampNonPositive(perturb(w.AvoidPeriods)),
		EarlierDates:         clampNonNegative(perturb(w.EarlierDates)),
	}
}

// jitter is gaussianMutate used to seed an initial diverse population
// around a starting WeightConfig.
func jitter(rng *rand.Rand, w domain.WeightConfig, sigmaFraction float64) domain.WeightConfig {
	return gaussianMutate(rng, w, sigmaFraction)
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampNonPositive(v int) int {
	if v > 0 {
		return 0
	}
	return v
}
