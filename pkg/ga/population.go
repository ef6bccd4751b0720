package ga

import (
	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"golang.org/x/exp/rand"
)

// NewPopulation builds size random chromosomes over req's classes and
// eligible dates, evaluating each one's fitness immediately so the
// population is ready for selection.
func NewPopulation(rng *rand.Rand, req *domain.ScheduleRequest, registry *constraints.Registry, dates []int64, size int, counter *uint64) *domain.Population {
	chromosomes := make([]*domain.Chromosome, size)
	for i := 0; i < size; i++ {
		c := RandomChromosome(rng, req, dates, nextID(counter))
		Evaluate(c, req, registry)
		chromosomes[i] = c
	}
	pop := &domain.Population{Chromosomes: chromosomes}
	pop.Best = bestOf(chromosomes)
	return pop
}

func nextID(counter *uint64) uint64 {
	*counter++
	return *counter
}

func bestOf(chromosomes []*domain.Chromosome) *domain.Chromosome {
	var best *domain.Chromosome
	var bestFitness float64
	for _, c := range chromosomes {
		f, ok := c.Fitness()
		if !ok {
			continue
		}
		if best == nil || f > bestFitness {
			best = c
			bestFitness = f
		}
	}
	return best
}

// Diversity returns the mean pairwise Hamming distance across the
// population's genes, normalized to 0..1 by the number of classes
// (the maximum possible per-pair distance).
func Diversity(chromosomes []*domain.Chromosome) float64 {
	n := len(chromosomes)
	if n < 2 {
		return 0
	}
	numGenes := 0
	if n > 0 {
		numGenes = len(chromosomes[0].Genes)
	}
	if numGenes == 0 {
		return 0
	}
	var totalDist float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			totalDist += float64(hamming(chromosomes[i], chromosomes[j]))
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	mean := totalDist / float64(pairs)
	return normalizeDiversity(mean, float64(numGenes))
}

func hamming(a, b *domain.Chromosome) int {
	dist := 0
	for i := range a.Genes {
		if i >= len(b.Genes) {
			break
		}
		if a.Genes[i].Date != b.Genes[i].Date || a.Genes[i].TimeSlot != b.Genes[i].TimeSlot {
			dist++
		}
	}
	return dist
}
