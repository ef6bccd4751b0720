package dashboard

// ComparisonResult reports one metric's change between a baseline and
// a comparison run, per spec §4.6.
type ComparisonResult struct {
	Metric       string
	Baseline     float64
	Comparison   float64
	Difference   float64
	PctChange    float64
	Improvement  bool
}

// Compare diffs every metric in comparison against baseline. A metric
// counts as an improvement if it increased, since all five scores are
// "higher is better".
func Compare(baseline, comparison QualityMetrics) []ComparisonResult {
	named := []struct {
		name string
		b, c float64
	}{
		{"distribution_score", baseline.DistributionScore, comparison.DistributionScore},
		{"preference_satisfaction", baseline.PreferenceSatisfaction, comparison.PreferenceSatisfaction},
		{"workload_balance", baseline.WorkloadBalance, comparison.WorkloadBalance},
		{"period_spread", baseline.PeriodSpread, comparison.PeriodSpread},
		{"overall_score", baseline.OverallScore, comparison.OverallScore},
	}
	results := make([]ComparisonResult, 0, len(named))
	for _, n := range named {
		diff := n.c - n.b
		pct := 0.0
		if n.b != 0 {
			pct = 100 * diff / n.b
		}
		results = append(results, ComparisonResult{
			Metric: n.name, Baseline: n.b, Comparison: n.c,
			Difference: diff, PctChange: pct, Improvement: diff > 0,
		})
	}
	return results
}
