package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors the GA driver and CP adapter
// report through. Default returns the single process-wide Metrics shared
// across concurrent solve calls (NewMetrics builds a separate set against
// another registry). The GA gauges/histograms and CPSolveDuration are
// labelled by run_id, so concurrent solves keep separate series;
// CPSolveOutcome is labelled only by status, and WorkerFallbacks is one
// process-wide counter.
type Metrics struct {
	GenerationBestFitness   *prometheus.GaugeVec
	GenerationAvgFitness    *prometheus.GaugeVec
	GenerationDiversity     *prometheus.GaugeVec
	GenerationMutationRate  *prometheus.GaugeVec
	GenerationCrossoverRate *prometheus.GaugeVec
	GenerationDuration      *prometheus.HistogramVec
	CPSolveDuration         *prometheus.HistogramVec
	CPSolveOutcome          *prometheus.CounterVec
	WorkerFallbacks         prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// NewMetrics constructs and registers a fresh Metrics against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registry across test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GenerationBestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "schedgen",
			Subsystem: "ga",
			Name:      "generation_best_fitness",
			Help:      "Best chromosome fitness in the current generation.",
		}, []string{"run_id"}),
		GenerationAvgFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "schedgen",
			Subsystem: "ga",
			Name:      "generation_avg_fitness",
			Help:      "Mean chromosome fitness in the current generation.",
		}, []string{"run_id"}),
		GenerationDiversity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "schedgen",
			Subsystem: "ga",
			Name:      "generation_diversity",
			Help:      "Normalized mean pairwise Hamming distance across the population.",
		}, []string{"run_id"}),
		GenerationMutationRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "schedgen",
			Subsystem: "ga",
			Name:      "mutation_rate",
			Help:      "Current adaptive mutation rate.",
		}, []string{"run_id"}),
		GenerationCrossoverRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "schedgen",
			Subsystem: "ga",
			Name:      "crossover_rate",
			Help:      "Current adaptive crossover rate.",
		}, []string{"run_id"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "schedgen",
			Subsystem: "ga",
			Name:      "generation_duration_seconds",
			Help:      "Wall-clock duration of one GA generation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"run_id"}),
		CPSolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "schedgen",
			Subsystem: "cp",
			Name:      "solve_duration_seconds",
			Help:      "Wall-clock duration of a CP solve call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"run_id"}),
		CPSolveOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schedgen",
			Subsystem: "cp",
			Name:      "solve_outcome_total",
			Help:      "CP solve outcomes by status.",
		}, []string{"status"}),
		WorkerFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "schedgen",
			Subsystem: "ga",
			Name:      "worker_fallbacks_total",
			Help:      "Times parallel fitness evaluation fell back to sequential after a worker error.",
		}),
	}
	reg.MustRegister(
		m.GenerationBestFitness, m.GenerationAvgFitness, m.GenerationDiversity,
		m.GenerationMutationRate, m.GenerationCrossoverRate, m.GenerationDuration,
		m.CPSolveDuration, m.CPSolveOutcome, m.WorkerFallbacks,
	)
	return m
}

// Default returns a process-wide Metrics registered against the global
// Prometheus registry, created lazily on first use.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}
