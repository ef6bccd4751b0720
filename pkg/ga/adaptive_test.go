package ga

import "testing"

func TestAdaptiveControllerBoostsMutationWhenDiversityLow(t *testing.T) {
	c := NewAdaptiveController(0.1, 0.8)
	c.Update(10, 0.1) // diversity below LowDiversityThreshold
	if c.MutationRate <= 0.1 {
		t.Fatalf("expected mutation rate to increase, got %v", c.MutationRate)
	}
}

func TestAdaptiveControllerDecaysMutationWhenDiverseAndImproving(t *testing.T) {
	c := NewAdaptiveController(0.1, 0.8)
	c.Update(1, 0.1) // diversity low: boosts mutation rate above the base
	boosted := c.MutationRate
	if boosted <= 0.1 {
		t.Fatalf("expected mutation rate boosted above base 0.1, got %v", boosted)
	}
	c.Update(5, 0.8) // improving, diversity high: decays back toward base
	if c.MutationRate >= boosted {
		t.Fatalf("expected mutation rate to decay from %v, got %v", boosted, c.MutationRate)
	}
	if c.MutationRate < 0.1 {
		t.Fatalf("expected mutation rate to floor at the base rate 0.1, got %v", c.MutationRate)
	}
}

func TestAdaptiveControllerTriggersInjectionOnPlateau(t *testing.T) {
	c := NewAdaptiveController(0.1, 0.8)
	injected := false
	for i := 0; i < PlateauWindow; i++ {
		if c.Update(42, 0.4) {
			injected = true
		}
	}
	if !injected {
		t.Fatal("expected a diversity injection after a full plateau window of flat fitness")
	}
	if c.CrossoverRate >= 0.8 {
		t.Fatalf("expected crossover rate to decay on plateau, got %v", c.CrossoverRate)
	}
}

func TestMutationRateStaysWithinBounds(t *testing.T) {
	c := NewAdaptiveController(MinMutationRate, MinCrossoverRate)
	for i := 0; i < 50; i++ {
		c.Update(float64(i), 0.05)
	}
	if c.MutationRate < MinMutationRate || c.MutationRate > MaxMutationRate {
		t.Fatalf("mutation rate %v escaped bounds", c.MutationRate)
	}
}
