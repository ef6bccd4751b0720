package ga

// AdaptiveBounds clamps the mutation/crossover rates the controller
// produces, per spec §4.3.4.
const (
	MinMutationRate  = 0.01
	MaxMutationRate  = 0.5
	MinCrossoverRate = 0.5
	MaxCrossoverRate = 0.95

	// PlateauWindow is W in the spec: the number of generations the
	// controller looks back over when deciding improvement_rate and
	// whether a plateau has been reached.
	PlateauWindow = 10

	// LowDiversityThreshold and HighDiversityThreshold gate the
	// mutation-rate rules.
	LowDiversityThreshold  = 0.2
	HighDiversityThreshold = 0.6

	// PlateauEpsilon is how close to zero improvement_rate must be to
	// count as "no improvement" for the plateau rule.
	PlateauEpsilon = 1e-9
)

// AdaptiveController tracks diversity and improvement-rate signals
// across generations and nudges mutation/crossover rates, per spec
// §4.3.4. It owns no RNG: rate changes are deterministic given the
// fitness/diversity history, so behavior is reproducible independent of
// worker count.
type AdaptiveController struct {
	MutationRate  float64
	CrossoverRate float64

	baseMutationRate float64 // floor for the high-diversity decay rule, per spec §4.3.4
	bestHistory      []float64 // best fitness per generation, most recent last
}

// NewAdaptiveController starts the controller at the given base rates.
func NewAdaptiveController(mutationRate, crossoverRate float64) *AdaptiveController {
	return &AdaptiveController{MutationRate: mutationRate, CrossoverRate: crossoverRate, baseMutationRate: mutationRate}
}

// Update records this generation's best fitness and diversity, then
// applies the spec's adaptive rules to MutationRate/CrossoverRate.
// Returns true if a diversity injection should be triggered this
// generation (the caller is responsible for actually replacing the
// worst 10% of the population).
func (a *AdaptiveController) Update(bestFitness, diversity float64) (injectDiversity bool) {
	a.bestHistory = append(a.bestHistory, bestFitness)
	if len(a.bestHistory) > PlateauWindow {
		a.bestHistory = a.bestHistory[len(a.bestHistory)-PlateauWindow:]
	}
	improvementRate := a.improvementRate()

	switch {
	case diversity < LowDiversityThreshold:
		a.MutationRate = clamp(a.MutationRate*1.5, MinMutationRate, MaxMutationRate)
	case diversity > HighDiversityThreshold && improvementRate > 0:
		a.MutationRate = clamp(a.MutationRate*0.8, a.baseMutationRate, MaxMutationRate)
	}

	if len(a.bestHistory) == PlateauWindow && improvementRate <= PlateauEpsilon {
		a.CrossoverRate = clamp(a.CrossoverRate*0.9, MinCrossoverRate, MaxCrossoverRate)
		injectDiversity = true
	}
	return injectDiversity
}

// improvementRate is the best-fitness delta over the tracked window
// divided by the window's span, per spec §4.3.4. Returns 0 until the
// window has at least two samples.
func (a *AdaptiveController) improvementRate() float64 {
	if len(a.bestHistory) < 2 {
		return 0
	}
	span := float64(len(a.bestHistory) - 1)
	delta := a.bestHistory[len(a.bestHistory)-1] - a.bestHistory[0]
	return delta / span
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
