// Package dashboard computes schedule-quality metrics from a finished
// set of assignments, compares two runs, renders go-echarts charts and
// keeps a bounded in-memory history of past runs, per spec §4.6.
package dashboard

import (
	"math"

	"github.com/danfeder/classroom-scheduler/pkg/domain"
)

// QualityMetrics is spec §4.6's output: five scores in [0,100] (barring
// PreferenceSatisfaction, which is NaN when no class declared a
// preference).
type QualityMetrics struct {
	DistributionScore       float64
	PreferenceSatisfaction  float64
	WorkloadBalance         float64
	PeriodSpread            float64
	OverallScore            float64
}

// OverallWeights are the default weights for OverallScore's weighted
// mean, per spec §4.6.
var OverallWeights = struct {
	Distribution float64
	Preference   float64
	Workload     float64
	PeriodSpread float64
}{Distribution: 0.3, Preference: 0.2, Workload: 0.2, PeriodSpread: 0.3}

// Analyze computes QualityMetrics for assignments against req.
func Analyze(req *domain.ScheduleRequest, assignments []domain.Assignment) QualityMetrics {
	m := QualityMetrics{
		DistributionScore:      distributionScore(assignments),
		PreferenceSatisfaction: preferenceSatisfaction(req, assignments),
		WorkloadBalance:        workloadBalance(assignments),
		PeriodSpread:           periodSpread(assignments),
	}
	m.OverallScore = overallScore(m)
	return m
}

// distributionScore is 100*(1 - normalized weekly variance) of
// per-ISO-week class counts.
func distributionScore(assignments []domain.Assignment) float64 {
	counts := make(map[int]int)
	for _, a := range assignments {
		year, week := a.Date.ISOWeek()
		counts[year*100+week]++
	}
	values := make([]float64, 0, len(counts))
	for _, v := range counts {
		values = append(values, float64(v))
	}
	return 100 * (1 - normalizedVariance(values))
}

// preferenceSatisfaction is the percent of classes (that declared at
// least one preferred slot) whose assignment matches one.
func preferenceSatisfaction(req *domain.ScheduleRequest, assignments []domain.Assignment) float64 {
	byClass := make(map[string]domain.Assignment, len(assignments))
	for _, a := range assignments {
		byClass[a.ClassID] = a
	}
	var total, satisfied int
	for _, c := range req.Classes {
		if len(c.PreferredPeriods) == 0 {
			continue
		}
		total++
		a, ok := byClass[c.ID]
		if !ok {
			continue
		}
		for _, p := range c.PreferredPeriods {
			if p.Slot == a.TimeSlot {
				satisfied++
				break
			}
		}
	}
	if total == 0 {
		return math.NaN()
	}
	return 100 * float64(satisfied) / float64(total)
}

// workloadBalance is 100*(1 - coefficient of variation) of per-date
// class counts, clipped to [0,100].
func workloadBalance(assignments []domain.Assignment) float64 {
	counts := make(map[string]int)
	for _, a := range assignments {
		counts[a.Date.Format("2006-01-02")]++
	}
	return clip(100 * (1 - coefficientOfVariation(mapValues(counts))))
}

// periodSpread is, for each day that has assignments, 1 - cv of
// classes-by-period; the mean over days, ×100.
func periodSpread(assignments []domain.Assignment) float64 {
	byDay := make(map[string]map[int]int)
	for _, a := range assignments {
		key := a.Date.Format("2006-01-02")
		if byDay[key] == nil {
			byDay[key] = make(map[int]int)
		}
		byDay[key][a.TimeSlot.Period]++
	}
	if len(byDay) == 0 {
		return 0
	}
	var sum float64
	for _, periods := range byDay {
		sum += 1 - coefficientOfVariation(mapValuesInt(periods))
	}
	return clip(100 * sum / float64(len(byDay)))
}

func overallScore(m QualityMetrics) float64 {
	pref := m.PreferenceSatisfaction
	prefWeight := OverallWeights.Preference
	if math.IsNaN(pref) {
		pref, prefWeight = 0, 0
	}
	weighted := OverallWeights.Distribution*m.DistributionScore +
		prefWeight*pref +
		OverallWeights.Workload*m.WorkloadBalance +
		OverallWeights.PeriodSpread*m.PeriodSpread
	totalWeight := OverallWeights.Distribution + prefWeight + OverallWeights.Workload + OverallWeights.PeriodSpread
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

func mapValues(m map[string]int) []float64 {
	values := make([]float64, 0, len(m))
	for _, v := range m {
		values = append(values, float64(v))
	}
	return values
}

func mapValuesInt(m map[int]int) []float64 {
	values := make([]float64, 0, len(m))
	for _, v := range m {
		values = append(values, float64(v))
	}
	return values
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func coefficientOfVariation(values []float64) float64 {
	avg := mean(values)
	if avg == 0 {
		return 0
	}
	return stddev(values, avg) / avg
}

// normalizedVariance scales variance into roughly [0,1] using the mean
// as its own reference point, matching coefficientOfVariation's shape
// but squared so it decays faster for small imbalances.
func normalizedVariance(values []float64) float64 {
	cv := coefficientOfVariation(values)
	return clip01(cv * cv)
}

func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
