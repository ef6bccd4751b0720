package ga

import (
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"golang.org/x/exp/rand"
)

// DefaultCrossoverRate is the probability that two selected parents
// produce crossed-over children rather than straight clones of both
// parents, mirroring the teacher's UniformCrossover default.
const DefaultCrossoverRate = 0.8

// UniformCrossover builds one child by choosing each gene (class
// assignment) independently from parentA or parentB with probability
// 0.5, the per-class analogue of the teacher's UniformCrossover over
// integer variable vectors.
func UniformCrossover(rng *rand.Rand, parentA, parentB *domain.Chromosome, createdAt uint64) *domain.Chromosome {
	n := len(parentA.Genes)
	genes := make([]domain.Assignment, n)
	for i := 0; i < n; i++ {
		if rng.Float64() < 0.5 {
			genes[i] = parentA.Genes[i]
		} else {
			genes[i] = parentB.Genes[i]
		}
	}
	return domain.NewChromosome(genes, createdAt)
}
