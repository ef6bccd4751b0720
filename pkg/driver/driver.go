// Package driver implements the unified solver entry point of spec
// §4.5: it picks CP, GA or a CP-then-GA chain based on problem size and
// an explicit strategy flag, relaxes soft constraints on infeasibility,
// and reports the metadata every caller (CLI, dashboard, experiment
// harness) depends on. This mirrors the teacher's MultiObjective.Balance
// orchestration (fetch state -> run optimization -> pick best -> report)
// generalized from a single NSGA-II call to a strategy-selecting chain.
package driver

import (
	"context"
	"time"

	"github.com/danfeder/classroom-scheduler/internal/errs"
	"github.com/danfeder/classroom-scheduler/internal/telemetry"
	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/cp"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"github.com/danfeder/classroom-scheduler/pkg/ga"
	"github.com/google/uuid"
	"golang.org/x/exp/rand"
)

// Strategy selects which solver(s) Driver.Solve uses.
type Strategy string

const (
	StrategyAuto     Strategy = "auto"
	StrategyCP       Strategy = "cp"
	StrategyGA       Strategy = "ga"
	StrategyCPThenGA Strategy = "cp_then_ga"
)

// autoClassThreshold and autoComplexityThreshold gate the "auto"
// strategy's CP-vs-GA choice, per spec §4.5.
const (
	autoClassThreshold      = 10
	autoComplexityThreshold = 50
	cpThenGAClassThreshold  = 20
)

// DefaultMaxRelaxationLevel bounds the relaxation retry ladder (spec
// §12's supplemented feature): when CP proves infeasible at level 0,
// the driver retries with every relaxable constraint's level
// incremented, up to this many times, before giving up.
const DefaultMaxRelaxationLevel = 2

// GeneticConfig mirrors the Solve API's solver.genetic sub-object.
type GeneticConfig struct {
	PopulationSize int
	EliteSize      int
	MutationRate   float64
	CrossoverRate  float64
	MaxGenerations int
	Adaptive       bool
	Parallel       bool
}

// Config is the Solve API's "solver" object (spec §6), plus the
// driver-only relaxation ladder knob.
type Config struct {
	Strategy           Strategy
	TimeLimit          time.Duration
	Seed               uint64
	Genetic            GeneticConfig
	MaxRelaxationLevel int
	// TestMode forces sequential GA fitness evaluation, for
	// deterministic tests; never set by the CLI.
	TestMode bool
	// OTELEndpoint, if set, installs an OTLP/gRPC tracer provider
	// pointed at it before the first Solve call. Left empty, spans are
	// recorded against the no-op provider (cheap, but exported nowhere).
	OTELEndpoint string
}

// Metadata is returned alongside Assignments, per spec §4.5/§6.
type Metadata struct {
	Solver          string
	DurationMS      int64
	Score           float64
	Generations     int
	Feasible        bool
	Status          string
	RelaxationLevel int
	Violations      []domain.Violation
}

// Result is Driver.Solve's full return value.
type Result struct {
	Assignments []domain.Assignment
	Metadata    Metadata
}

// Builder composes a Driver the way spec §9 asks for (SolverBuilder),
// replacing the dependency-injection container the teacher doesn't need
// here either.
type Builder struct {
	req    *domain.ScheduleRequest
	cfg    Config
	registry *constraints.Registry
}

// NewBuilder starts a Builder for req.
func NewBuilder(req *domain.ScheduleRequest) *Builder {
	return &Builder{req: req, cfg: Config{Strategy: StrategyAuto, MaxRelaxationLevel: DefaultMaxRelaxationLevel}}
}

// WithStrategy overrides the strategy (default StrategyAuto).
func (b *Builder) WithStrategy(s Strategy) *Builder { b.cfg.Strategy = s; return b }

// WithConfig replaces the whole solver config.
func (b *Builder) WithConfig(cfg Config) *Builder { b.cfg = cfg; return b }

// WithConstraints overrides the constraint registry (defaults to
// constraints.DefaultRegistry(req) built lazily in Build).
func (b *Builder) WithConstraints(r *constraints.Registry) *Builder { b.registry = r; return b }

// Build validates the request/config and returns a ready Driver, or a
// ConfigError if validation fails.
func (b *Builder) Build() (*Driver, error) {
	if len(b.req.Classes) == 0 {
		return nil, errs.ConfigError("request has no classes")
	}
	if b.req.Constraints.MinClassesPerWeek > 0 && b.req.Constraints.MaxClassesPerWeek > 0 &&
		b.req.Constraints.MinClassesPerWeek > b.req.Constraints.MaxClassesPerWeek {
		return nil, errs.ConfigError("min_per_week (%d) exceeds max_per_week (%d)",
			b.req.Constraints.MinClassesPerWeek, b.req.Constraints.MaxClassesPerWeek)
	}
	registry := b.registry
	if registry == nil {
		registry = constraints.DefaultRegistry(b.req)
	}
	if problems := registry.ValidateCompatibility(); len(problems) > 0 {
		return nil, errs.ConfigError("incompatible constraint configuration: %v", problems)
	}
	cfg := b.cfg
	if cfg.MaxRelaxationLevel <= 0 {
		cfg.MaxRelaxationLevel = DefaultMaxRelaxationLevel
	}
	if cfg.OTELEndpoint != "" {
		if _, err := telemetry.InstallTracerProvider(context.Background(), telemetry.TracerProviderConfig{Endpoint: cfg.OTELEndpoint}); err != nil {
			return nil, errs.InternalError("installing tracer provider: %v", err)
		}
	}
	return &Driver{
		req:      b.req,
		cfg:      cfg,
		registry: registry,
		metrics:  telemetry.Default(),
		runID:    uuid.NewString(),
	}, nil
}

// Driver runs a validated Config against a ScheduleRequest.
type Driver struct {
	req      *domain.ScheduleRequest
	cfg      Config
	registry *constraints.Registry
	metrics  *telemetry.Metrics
	runID    string
}

// Solve picks a strategy (or follows the one pinned in Config) and
// returns assignments plus metadata. It never returns an error for
// Infeasible/Timeout/Cancelled: those surface through Metadata.Status,
// per spec §7's propagation rules; only ConfigError/InternalError are
// returned as errors, and Build already screens ConfigError, so Solve
// itself only returns InternalError.
func (d *Driver) Solve(ctx context.Context) (Result, error) {
	logger := telemetry.LoggerFor(ctx, "driver")
	ctx, span := telemetry.StartSpan(ctx, "driver.Solve")
	defer span.End()
	start := time.Now()

	strategy := d.resolveStrategy()
	logger.V(1).Info("strategy selected", "strategy", strategy)

	var result Result
	switch strategy {
	case StrategyCP:
		result = d.solveCP(ctx)
	case StrategyGA:
		result = d.solveGA(ctx, nil)
	case StrategyCPThenGA:
		result = d.solveCPThenGA(ctx)
	default:
		return Result{}, errs.InternalError("unresolved strategy %q", strategy)
	}

	result.Metadata.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

// resolveStrategy implements spec §4.5's "auto" rule. Non-auto
// strategies pass through unchanged.
func (d *Driver) resolveStrategy() Strategy {
	if d.cfg.Strategy != StrategyAuto {
		return d.cfg.Strategy
	}
	n := len(d.req.Classes)
	if n <= autoClassThreshold && d.complexity() <= autoComplexityThreshold {
		return StrategyCP
	}
	if n > cpThenGAClassThreshold {
		return StrategyCPThenGA
	}
	return StrategyGA
}

// complexity is a coarse proxy for the front-end complexity heuristic
// spec.md keeps out of scope: count of enabled constraints times the
// average number of per-class preference/conflict entries, enough to
// decide CP-vs-GA without needing the client's own heuristic.
func (d *Driver) complexity() int {
	enabled := len(d.registry.Enabled())
	entries := 0
	for _, c := range d.req.Classes {
		entries += len(c.Conflicts) + len(c.RequiredPeriods) + len(c.PreferredPeriods) + len(c.AvoidPeriods)
	}
	avgEntries := 0
	if len(d.req.Classes) > 0 {
		avgEntries = entries / len(d.req.Classes)
	}
	return enabled * (1 + avgEntries)
}

func (d *Driver) solveCP(ctx context.Context) Result {
	cpResult, level := d.solveCPWithRelaxation(ctx)
	feasible := cpResult.Status == cp.StatusOptimal || cpResult.Status == cp.StatusIncumbent ||
		(cpResult.Status == cp.StatusTimeout && len(cpResult.Assignments) > 0)
	return Result{
		Assignments: cpResult.Assignments,
		Metadata: Metadata{
			Solver:          "cp",
			Score:           cpResult.Score,
			Feasible:        feasible,
			Status:          string(cpResult.Status),
			RelaxationLevel: level,
			Violations:      d.violations(cpResult.Assignments),
		},
	}
}

// solveCPWithRelaxation retries Solve with every relaxable constraint's
// level bumped by one, up to cfg.MaxRelaxationLevel times, whenever the
// prior attempt came back Infeasible (spec §12's relaxation ladder).
func (d *Driver) solveCPWithRelaxation(ctx context.Context) (cp.Result, int) {
	logger := telemetry.LoggerFor(ctx, "driver")
	level := 0
	for {
		result := cp.Solve(ctx, d.req, d.registry, cp.Options{TimeLimit: d.cfg.TimeLimit, Metrics: d.metrics, RunID: d.runID})
		if result.Status != cp.StatusInfeasible || level >= d.cfg.MaxRelaxationLevel {
			return result, level
		}
		level++
		relaxed := d.relaxOneLevel(level)
		logger.V(2).Info("cp infeasible, relaxing constraints and retrying", "level", level, "relaxed", relaxed)
	}
}

func (d *Driver) relaxOneLevel(level int) []string {
	var relaxed []string
	for _, name := range d.registry.Enabled() {
		c := d.registry.Get(name)
		if _, ok := c.(constraints.Relaxable); ok {
			d.registry.SetRelaxationLevel(name, level)
			relaxed = append(relaxed, name)
		}
	}
	return relaxed
}

func (d *Driver) solveGA(ctx context.Context, seedPopulation []*domain.Chromosome) Result {
	opt := &ga.Optimizer{
		Req:      d.req,
		Registry: d.registry,
		Metrics:  d.metrics,
		RunID:    d.runID,
		Config: ga.Config{
			PopulationSize: d.cfg.Genetic.PopulationSize,
			EliteSize:      d.cfg.Genetic.EliteSize,
			MutationRate:   d.cfg.Genetic.MutationRate,
			CrossoverRate:  d.cfg.Genetic.CrossoverRate,
			MaxGenerations: d.cfg.Genetic.MaxGenerations,
			TimeLimit:      d.cfg.TimeLimit,
			Adaptive:       d.cfg.Genetic.Adaptive,
			Parallel:       d.cfg.Genetic.Parallel,
			TestMode:       d.cfg.TestMode,
			Seed:           d.cfg.Seed,
			SeedPopulation: seedPopulation,
		},
	}
	result := opt.Run(ctx)
	feasible := result.Best != nil && result.Best.ConstraintViolations == 0
	status := "infeasible"
	if feasible {
		status = string(result.Reason)
	} else if result.Reason == ga.TerminationCancelled {
		status = "cancelled"
	}
	score, genes := 0.0, []domain.Assignment(nil)
	if result.Best != nil {
		score, _ = result.Best.Fitness()
		genes = result.Best.Genes
	}
	return Result{
		Assignments: genes,
		Metadata: Metadata{
			Solver:      "ga",
			Score:       score,
			Generations: result.Generation,
			Feasible:    feasible,
			Status:      status,
			Violations:  d.violations(genes),
		},
	}
}

// solveCPThenGA seeds the GA population with the CP incumbent plus
// N-1 perturbed copies (gene-level mutation rate 0.2), per spec §4.5.
func (d *Driver) solveCPThenGA(ctx context.Context) Result {
	cpResult, level := d.solveCPWithRelaxation(ctx)
	var seed []*domain.Chromosome
	if len(cpResult.Assignments) == len(d.req.Classes) {
		seed = d.buildSeedPopulation(cpResult.Assignments)
	}
	result := d.solveGA(ctx, seed)
	result.Metadata.Solver = "cp->ga"
	result.Metadata.RelaxationLevel = level
	return result
}

func (d *Driver) buildSeedPopulation(incumbent []domain.Assignment) []*domain.Chromosome {
	popSize := d.cfg.Genetic.PopulationSize
	if popSize <= 0 {
		popSize = 100
	}
	rng := rand.New(rand.NewSource(d.cfg.Seed))
	dates := ga.NewModelDates(d.req)
	var counter uint64
	base := domain.NewChromosome(append([]domain.Assignment(nil), incumbent...), nextSeedID(&counter))
	chromosomes := make([]*domain.Chromosome, 0, popSize)
	chromosomes = append(chromosomes, base)
	for len(chromosomes) < popSize {
		clone := base.Clone(nextSeedID(&counter))
		ga.Mutate(rng, clone, d.req, dates, 0.2)
		chromosomes = append(chromosomes, clone)
	}
	return chromosomes
}

func nextSeedID(counter *uint64) uint64 {
	*counter++
	return *counter
}

func (d *Driver) violations(assignments []domain.Assignment) []domain.Violation {
	ctx := constraints.NewContext(d.req)
	return d.registry.ValidateAll(assignments, ctx)
}
