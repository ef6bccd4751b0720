package ga

import (
	"context"
	"testing"

	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/google/go-cmp/cmp"
)

func TestOptimizerFindsFeasibleSolution(t *testing.T) {
	req := weekRequest()
	registry := constraints.DefaultRegistry(req)
	opt := &Optimizer{
		Req: req, Registry: registry,
		Config: Config{
			PopulationSize: 30, EliteSize: 2, MaxGenerations: 50,
			Seed: 7, TestMode: true,
		},
	}
	result := opt.Run(context.Background())
	if result.Best == nil {
		t.Fatal("expected a best chromosome")
	}
	if result.Best.ConstraintViolations != 0 {
		t.Fatalf("expected a feasible solution on a two-class, unconstrained request, got %d violations", result.Best.ConstraintViolations)
	}
}

func TestOptimizerDeterministicGivenSameSeed(t *testing.T) {
	req := weekRequest()
	registry := constraints.DefaultRegistry(req)
	run := func() *Result {
		opt := &Optimizer{
			Req: req, Registry: registry,
			Config: Config{PopulationSize: 20, EliteSize: 2, MaxGenerations: 15, Seed: 42, TestMode: true},
		}
		r := opt.Run(context.Background())
		return &r
	}
	a, b := run(), run()
	if diff := cmp.Diff(a.Best.Genes, b.Best.Genes); diff != "" {
		t.Fatalf("same seed produced different assignments (-a +b):\n%s", diff)
	}
}

func TestOptimizerWorkerCountInvariant(t *testing.T) {
	req := weekRequest()
	registry := constraints.DefaultRegistry(req)
	runWith := func(parallel bool) *Result {
		opt := &Optimizer{
			Req: req, Registry: registry,
			Config: Config{PopulationSize: 20, EliteSize: 2, MaxGenerations: 15, Seed: 99, Parallel: parallel},
		}
		r := opt.Run(context.Background())
		return &r
	}
	sequential := runWith(false)
	parallel := runWith(true)
	if diff := cmp.Diff(sequential.Best.Genes, parallel.Best.Genes); diff != "" {
		t.Fatalf("parallel and sequential runs diverged (-seq +parallel):\n%s", diff)
	}
}

func TestOptimizerRespectsMaxGenerations(t *testing.T) {
	req := weekRequest()
	registry := constraints.DefaultRegistry(req)
	opt := &Optimizer{
		Req: req, Registry: registry,
		Config: Config{PopulationSize: 10, EliteSize: 1, MaxGenerations: 3, Seed: 1, TestMode: true},
	}
	result := opt.Run(context.Background())
	if result.Reason != TerminationMaxGenerations {
		t.Fatalf("expected max_generations termination, got %s", result.Reason)
	}
	if result.Generation != 3 {
		t.Fatalf("expected generation 3, got %d", result.Generation)
	}
}
