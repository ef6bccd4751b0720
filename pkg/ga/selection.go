package ga

import (
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"golang.org/x/exp/rand"
)

// DefaultTournamentSize is k in tournament selection: k chromosomes are
// drawn uniformly at random and the fittest one wins.
const DefaultTournamentSize = 3

// TournamentSelect draws k candidates from chromosomes and returns the
// winner: highest fitness, ties broken by fewer constraint violations,
// remaining ties broken by earlier CreatedAt (older chromosomes win,
// matching the teacher's stable-selection tiebreak in TournamentSelect).
func TournamentSelect(rng *rand.Rand, chromosomes []*domain.Chromosome, k int) *domain.Chromosome {
	if k <= 0 || k > len(chromosomes) {
		k = len(chromosomes)
	}
	best := chromosomes[rng.Intn(len(chromosomes))]
	for i := 1; i < k; i++ {
		challenger := chromosomes[rng.Intn(len(chromosomes))]
		if better(challenger, best) {
			best = challenger
		}
	}
	return best
}

func better(a, b *domain.Chromosome) bool {
	af, _ := a.Fitness()
	bf, _ := b.Fitness()
	if af != bf {
		return af > bf
	}
	if a.ConstraintViolations != b.ConstraintViolations {
		return a.ConstraintViolations < b.ConstraintViolations
	}
	return a.CreatedAt() < b.CreatedAt()
}
