package ga

import (
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"golang.org/x/exp/rand"
)

// DefaultMutationRate is the per-gene mutation probability, applied
// independently to every gene in a child chromosome.
const DefaultMutationRate = 0.1

// MaxMutationRetries bounds how many times Mutate resamples a gene
// looking for one that avoids the class's hard Conflicts before giving
// up and accepting whatever RandomGene last produced, matching the
// spec's "bounded retries, else accept" rule.
const MaxMutationRetries = 5

// Mutate walks c's genes and, independently for each with probability
// rate, replaces it with a fresh random assignment for that class drawn
// from RandomGene, resampling up to MaxMutationRetries times for one
// that clears the class's own Conflicts set. Mutate operates in place
// on a clone the caller owns; it does not copy c itself.
func Mutate(rng *rand.Rand, c *domain.Chromosome, req *domain.ScheduleRequest, dates []int64, rate float64) {
	byID := make(map[string]*domain.Class, len(req.Classes))
	for i := range req.Classes {
		byID[req.Classes[i].ID] = &req.Classes[i]
	}
	for i := range c.Genes {
		if rng.Float64() >= rate {
			continue
		}
		class := byID[c.Genes[i].ClassID]
		if class == nil {
			continue
		}
		gene := RandomGene(rng, req, class, dates)
		for attempt := 0; attempt < MaxMutationRetries && class.ConflictsWith(gene.TimeSlot); attempt++ {
			gene = RandomGene(rng, req, class, dates)
		}
		c.Genes[i] = gene
	}
}
