package ga

import (
	"runtime"
	"sync"

	"github.com/danfeder/classroom-scheduler/internal/telemetry"
	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"k8s.io/klog/v2"
)

// WorkerCount implements the spec's auto = min(num_cpus,
// population_size/4) sizing rule, floored at 1.
func WorkerCount(populationSize int) int {
	byPop := populationSize / 4
	n := runtime.NumCPU()
	if byPop > 0 && byPop < n {
		n = byPop
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Evaluator evaluates a generation's unevaluated chromosomes, in
// parallel across a worker pool when enabled. Workers receive only
// immutable snapshots (request, registry) and mutate distinct
// chromosome indices, mirroring the teacher's workChan/sync.WaitGroup
// pattern in algorithms/nsga2.go's Run. Evaluate is a pure function of
// (chromosome, request, registry) with no randomness of its own, so
// results are worker-count-invariant without any per-worker subseeding.
// TestMode forces sequential evaluation for deterministic tests, per
// spec §4.3.5.
type Evaluator struct {
	Req      *domain.ScheduleRequest
	Registry *constraints.Registry
	Parallel bool
	TestMode bool
	Metrics  *telemetry.Metrics
	RunID    string
}

// Evaluate fitness-scores every chromosome in chromosomes that hasn't
// been evaluated yet (Fitness() returns false). On any worker panic or
// error the evaluator logs a warning, records a fallback metric, and
// finishes the remaining work sequentially in the caller's goroutine.
func (e *Evaluator) Evaluate(chromosomes []*domain.Chromosome) {
	pending := make([]int, 0, len(chromosomes))
	for i, c := range chromosomes {
		if _, ok := c.Fitness(); !ok {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return
	}

	if !e.Parallel || e.TestMode || len(pending) < 2 {
		e.evaluateSequential(chromosomes, pending)
		return
	}

	if !e.evaluateParallel(chromosomes, pending) {
		if e.Metrics != nil {
			e.Metrics.WorkerFallbacks.Inc()
		}
		klog.Warningf("ga: parallel fitness evaluation failed (run %q); falling back to sequential", e.RunID)
		// Re-scan: some indices may have completed before the failure.
		remaining := make([]int, 0, len(pending))
		for _, i := range pending {
			if _, ok := chromosomes[i].Fitness(); !ok {
				remaining = append(remaining, i)
			}
		}
		e.evaluateSequential(chromosomes, remaining)
	}
}

func (e *Evaluator) evaluateSequential(chromosomes []*domain.Chromosome, indices []int) {
	for _, i := range indices {
		Evaluate(chromosomes[i], e.Req, e.Registry)
	}
}

// evaluateParallel runs the pending indices across a worker pool.
// Returns false if any worker encountered a panic, signalling the
// caller should fall back to sequential evaluation for what's left
// (WorkerError, per spec §7).
func (e *Evaluator) evaluateParallel(chromosomes []*domain.Chromosome, indices []int) (ok bool) {
	numWorkers := WorkerCount(len(chromosomes))
	if numWorkers > len(indices) {
		numWorkers = len(indices)
	}
	workChan := make(chan int, len(indices))
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := false

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					failed = true
					mu.Unlock()
				}
			}()
			for idx := range workChan {
				Evaluate(chromosomes[idx], e.Req, e.Registry)
			}
		}(w)
	}
	for _, i := range indices {
		workChan <- i
	}
	close(workChan)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return !failed
}
