package experiment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/danfeder/classroom-scheduler/internal/telemetry"
	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"github.com/danfeder/classroom-scheduler/pkg/ga"
)

// parameterHashLength is the number of hex characters kept from the
// sha256 digest, per spec §12's supplemented reproducibility feature.
const parameterHashLength = 12

// RunResult is one parameter point's outcome.
type RunResult struct {
	Point         Point
	ParameterHash string
	BestFitness   float64
	Feasible      bool
	Generations   int
	Stats         []ga.GenerationStats
}

// Config configures one parameter sweep. BaseConfig supplies every GA
// knob not swept by Grid; Grid's point values override the
// corresponding BaseConfig field by name ("population_size",
// "mutation_rate", "crossover_rate", "elite_size", "max_generations").
type Config struct {
	BaseConfig ga.Config
	Grid       ParameterGrid
	Seed       uint64
}

// Report is Run's aggregated output: every point's result, the best
// point by fitness, per-parameter sensitivity, and each point's
// convergence curve (best fitness per generation).
type Report struct {
	Results     []RunResult
	Best        *RunResult
	Sensitivity map[string][]SensitivityPoint
}

// SensitivityPoint pairs one swept value with the best fitness observed
// at that value (averaged over every other point sharing it).
type SensitivityPoint struct {
	Value   float64
	Fitness float64
}

// Run executes cfg.BaseConfig once per point in cfg.Grid's Cartesian
// product, with CollectStats forced on, then aggregates a Report.
func Run(ctx context.Context, req *domain.ScheduleRequest, registry *constraints.Registry, cfg Config) Report {
	logger := telemetry.LoggerFor(ctx, "experiment")
	points := Enumerate(cfg.Grid)
	results := make([]RunResult, 0, len(points))

	for i, point := range points {
		select {
		case <-ctx.Done():
			return aggregate(results)
		default:
		}
		gaCfg := applyPoint(cfg.BaseConfig, point)
		gaCfg.Seed = cfg.Seed
		gaCfg.CollectStats = true
		paramHash := hashPoint(point)
		opt := &ga.Optimizer{Req: req, Registry: registry, Config: gaCfg, Metrics: telemetry.Default(), RunID: paramHash}
		result := opt.Run(ctx)

		fitness := 0.0
		feasible := false
		if result.Best != nil {
			fitness, _ = result.Best.Fitness()
			feasible = result.Best.ConstraintViolations == 0
		}
		results = append(results, RunResult{
			Point:         point,
			ParameterHash: paramHash,
			BestFitness:   fitness,
			Feasible:      feasible,
			Generations:   result.Generation,
			Stats:         result.Stats,
		})
		logger.V(1).Info("experiment point complete", "index", i, "fitness", fitness, "feasible", feasible)
	}

	return aggregate(results)
}

// applyPoint overrides the named fields of base with point's values.
func applyPoint(base ga.Config, point Point) ga.Config {
	cfg := base
	if v, ok := point["population_size"]; ok {
		cfg.PopulationSize = int(v)
	}
	if v, ok := point["elite_size"]; ok {
		cfg.EliteSize = int(v)
	}
	if v, ok := point["mutation_rate"]; ok {
		cfg.MutationRate = v
	}
	if v, ok := point["crossover_rate"]; ok {
		cfg.CrossoverRate = v
	}
	if v, ok := point["max_generations"]; ok {
		cfg.MaxGenerations = int(v)
	}
	return cfg
}

// hashPoint returns a short, stable digest of point, per spec §4.7:
// "a short stable digest of the sorted JSON of parameters".
func hashPoint(point Point) string {
	names := make([]string, 0, len(point))
	for k := range point {
		names = append(names, k)
	}
	sort.Strings(names)
	ordered := make([]struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}, len(names))
	for i, name := range names {
		ordered[i].Name = name
		ordered[i].Value = point[name]
	}
	encoded, _ := json.Marshal(ordered)
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])[:parameterHashLength]
}

func aggregate(results []RunResult) Report {
	report := Report{Results: results, Sensitivity: make(map[string][]SensitivityPoint)}
	if len(results) == 0 {
		return report
	}

	best := &results[0]
	for i := range results[1:] {
		if results[i+1].BestFitness > best.BestFitness {
			best = &results[i+1]
		}
	}
	report.Best = best

	for name := range results[0].Point {
		report.Sensitivity[name] = sensitivityFor(results, name)
	}
	return report
}

// sensitivityFor groups results by their value of parameter name and
// averages BestFitness within each group, sorted by value ascending.
func sensitivityFor(results []RunResult, name string) []SensitivityPoint {
	sums := make(map[float64]float64)
	counts := make(map[float64]int)
	for _, r := range results {
		v := r.Point[name]
		sums[v] += r.BestFitness
		counts[v]++
	}
	values := make([]float64, 0, len(sums))
	for v := range sums {
		values = append(values, v)
	}
	sort.Float64s(values)
	points := make([]SensitivityPoint, len(values))
	for i, v := range values {
		points[i] = SensitivityPoint{Value: v, Fitness: sums[v] / float64(counts[v])}
	}
	return points
}
