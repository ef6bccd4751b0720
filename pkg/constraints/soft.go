package constraints

import (
	"fmt"
	"math"

	"github.com/danfeder/classroom-scheduler/pkg/domain"
)

// relaxState is embedded by every soft constraint to implement
// Relaxable uniformly.
type relaxState struct {
	base  float64
	level int
}

func (r *relaxState) BaseWeight() float64        { return r.base }
func (r *relaxState) SetRelaxationLevel(l int)    { r.level = l }
func (r *relaxState) RelaxationLevel() int        { return r.level }
func (r *relaxState) weight() float64 {
	return RelaxedWeight(r.base, r.level, DefaultRelaxationDecay)
}

// PreferredPeriodConstraint rewards assignments landing on a class's
// preferred slots. Instructor-level overlays
// (InstructorAvailability.Preferred) are not read.
type PreferredPeriodConstraint struct{ relaxState }

func NewPreferredPeriodConstraint(weight float64) *PreferredPeriodConstraint {
	return &PreferredPeriodConstraint{relaxState{base: weight}}
}

func (c *PreferredPeriodConstraint) Name() string       { return "preferred_period" }
func (c *PreferredPeriodConstraint) Category() Category { return CategoryClass }
func (c *PreferredPeriodConstraint) Hard() bool         { return false }

func (c *PreferredPeriodConstraint) Apply(model Model, ctx *Context) {
	w := c.weight()
	for _, class := range ctx.Request.Classes {
		for _, pref := range class.PreferredPeriods {
			for dateIdx, day := range model.Dates() {
				if weekdayOf(day) == pref.Slot.DayOfWeek {
					model.AddSoftTerm(class.ID, dateIdx, pref.Slot.Period, w*pref.Weight)
				}
			}
		}
	}
}

func (c *PreferredPeriodConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	var violations []domain.Violation
	for _, a := range assignments {
		class := ctx.ClassByID[a.ClassID]
		if class == nil || len(class.PreferredPeriods) == 0 {
			continue
		}
		if !matchesAnySlot(class.PreferredPeriods, a.TimeSlot) {
			violations = append(violations, domain.Violation{
				ConstraintName: "preferred_period",
				Severity:       domain.SeverityInfo,
				Message:        fmt.Sprintf("class %s missed all preferred periods", a.ClassID),
				ClassID:        a.ClassID,
			})
		}
	}
	return violations
}

// AvoidPeriodConstraint penalizes assignments landing on a class's
// avoid-listed slots; instructor-level overlays
// (InstructorAvailability.Avoid) are not read. weight is conventionally
// negative; Apply multiplies it straight into the soft term so a more
// negative weight means a stronger penalty.
type AvoidPeriodConstraint struct{ relaxState }

func NewAvoidPeriodConstraint(weight float64) *AvoidPeriodConstraint {
	return &AvoidPeriodConstraint{relaxState{base: weight}}
}

func (c *AvoidPeriodConstraint) Name() string       { return "avoid_period" }
func (c *AvoidPeriodConstraint) Category() Category { return CategoryClass }
func (c *AvoidPeriodConstraint) Hard() bool         { return false }

func (c *AvoidPeriodConstraint) Apply(model Model, ctx *Context) {
	w := c.weight()
	for _, class := range ctx.Request.Classes {
		for _, avoid := range class.AvoidPeriods {
			for dateIdx, day := range model.Dates() {
				if weekdayOf(day) == avoid.Slot.DayOfWeek {
					model.AddSoftTerm(class.ID, dateIdx, avoid.Slot.Period, w*avoid.Weight)
				}
			}
		}
	}
}

func (c *AvoidPeriodConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	var violations []domain.Violation
	for _, a := range assignments {
		class := ctx.ClassByID[a.ClassID]
		if class == nil {
			continue
		}
		if matchesAnySlot(class.AvoidPeriods, a.TimeSlot) {
			violations = append(violations, domain.Violation{
				ConstraintName: "avoid_period",
				Severity:       domain.SeverityWarning,
				Message:        fmt.Sprintf("class %s landed on an avoid-listed period", a.ClassID),
				ClassID:        a.ClassID,
			})
		}
	}
	return violations
}

func matchesAnySlot(slots []domain.WeightedSlot, slot domain.TimeSlot) bool {
	for _, s := range slots {
		if s.Slot == slot {
			return true
		}
	}
	return false
}

// EarlierDatesConstraint rewards assignments placed earlier in the
// request's date range, all else equal, so ties between otherwise
// equivalent schedules favor front-loading work.
type EarlierDatesConstraint struct{ relaxState }

func NewEarlierDatesConstraint(weight float64) *EarlierDatesConstraint {
	return &EarlierDatesConstraint{relaxState{base: weight}}
}

func (c *EarlierDatesConstraint) Name() string       { return "earlier_dates" }
func (c *EarlierDatesConstraint) Category() Category { return CategoryDistribution }
func (c *EarlierDatesConstraint) Hard() bool         { return false }

func (c *EarlierDatesConstraint) Apply(model Model, ctx *Context) {
	dates := model.Dates()
	if len(dates) == 0 {
		return
	}
	w := c.weight()
	last := float64(len(dates) - 1)
	for _, class := range ctx.Request.Classes {
		for dateIdx := range dates {
			// Linearly decaying bonus: index 0 gets the full weight, the
			// last eligible date gets none.
			bonus := w * (1 - float64(dateIdx)/math.Max(last, 1))
			for period := 1; period <= domain.MaxPeriod; period++ {
				model.AddSoftTerm(class.ID, dateIdx, period, bonus)
			}
		}
	}
}

func (c *EarlierDatesConstraint) Validate([]domain.Assignment, *Context) []domain.Violation {
	return nil // a preference signal, not a pass/fail rule
}

// DailyBalanceConstraint rewards schedules that spread each day's
// workload evenly and avoid clustering many classes into the same day.
type DailyBalanceConstraint struct{ relaxState }

func NewDailyBalanceConstraint(weight float64) *DailyBalanceConstraint {
	return &DailyBalanceConstraint{relaxState{base: weight}}
}

func (c *DailyBalanceConstraint) Name() string       { return "daily_balance" }
func (c *DailyBalanceConstraint) Category() Category { return CategoryDistribution }
func (c *DailyBalanceConstraint) Hard() bool         { return false }

// Apply is a no-op: balance is a population-level statistic over all
// classes' assignments at once, not expressible as a per-variable
// linear term. Validate reports it post hoc; neither the CP objective
// nor the GA fitness function (pkg/ga's softScore) includes it, and CP
// solves rely on MaxPerDay to keep daily counts within bounds.
func (c *DailyBalanceConstraint) Apply(Model, *Context) {}

func (c *DailyBalanceConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	counts := make(map[int64]int)
	for _, a := range assignments {
		counts[toUnixDay(a.Date)]++
	}
	if len(counts) == 0 {
		return nil
	}
	mean := float64(len(assignments)) / float64(len(counts))
	var variance float64
	for _, n := range counts {
		d := float64(n) - mean
		variance += d * d
	}
	variance /= float64(len(counts))
	stddev := math.Sqrt(variance)
	if stddev <= 1.5 {
		return nil
	}
	return []domain.Violation{{
		ConstraintName: "daily_balance",
		Severity:       domain.SeverityInfo,
		Message:        fmt.Sprintf("daily class counts are uneven (stddev=%.2f)", stddev),
	}}
}

// Score returns a 0..1 balance score (1 is perfectly even). Neither
// pkg/dashboard's workload_balance metric nor the GA fitness function
// calls it; the dashboard computes its own statistic.
func (c *DailyBalanceConstraint) Score(assignments []domain.Assignment) float64 {
	counts := make(map[int64]int)
	for _, a := range assignments {
		counts[toUnixDay(a.Date)]++
	}
	if len(counts) == 0 {
		return 1
	}
	mean := float64(len(assignments)) / float64(len(counts))
	if mean == 0 {
		return 1
	}
	var variance float64
	for _, n := range counts {
		d := float64(n) - mean
		variance += d * d
	}
	variance /= float64(len(counts))
	cv := math.Sqrt(variance) / mean
	return 1 / (1 + cv)
}

// DistributionBalanceConstraint rewards schedules that spread
// assignments evenly across the available periods (1..MaxPeriod)
// rather than clustering every class into the same few periods.
// pkg/dashboard's period_spread metric computes its own per-day
// statistic and does not call Score.
type DistributionBalanceConstraint struct{ relaxState }

func NewDistributionBalanceConstraint(weight float64) *DistributionBalanceConstraint {
	return &DistributionBalanceConstraint{relaxState{base: weight}}
}

func (c *DistributionBalanceConstraint) Name() string       { return "distribution" }
func (c *DistributionBalanceConstraint) Category() Category { return CategoryDistribution }
func (c *DistributionBalanceConstraint) Hard() bool         { return false }

// Apply is a no-op for the same reason as DailyBalanceConstraint.
func (c *DistributionBalanceConstraint) Apply(Model, *Context) {}

func (c *DistributionBalanceConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	score := c.Score(assignments)
	if score >= 0.5 {
		return nil
	}
	return []domain.Violation{{
		ConstraintName: "distribution",
		Severity:       domain.SeverityInfo,
		Message:        fmt.Sprintf("period usage is concentrated (spread score=%.2f)", score),
	}}
}

// Score returns a 0..1 measure of how evenly periods 1..MaxPeriod are
// used across assignments (1 is perfectly even).
func (c *DistributionBalanceConstraint) Score(assignments []domain.Assignment) float64 {
	if len(assignments) == 0 {
		return 1
	}
	counts := make(map[int]int, domain.MaxPeriod)
	for _, a := range assignments {
		counts[a.TimeSlot.Period]++
	}
	mean := float64(len(assignments)) / float64(domain.MaxPeriod)
	if mean == 0 {
		return 1
	}
	var variance float64
	for p := 1; p <= domain.MaxPeriod; p++ {
		d := float64(counts[p]) - mean
		variance += d * d
	}
	variance /= float64(domain.MaxPeriod)
	cv := math.Sqrt(variance) / mean
	return 1 / (1 + cv)
}

// DayUsageConstraint rewards spreading classes across more distinct
// days rather than concentrating them into a handful of days even when
// per-day counts stay within MaxPerDay.
type DayUsageConstraint struct{ relaxState }

func NewDayUsageConstraint(weight float64) *DayUsageConstraint {
	return &DayUsageConstraint{relaxState{base: weight}}
}

func (c *DayUsageConstraint) Name() string       { return "day_usage" }
func (c *DayUsageConstraint) Category() Category { return CategoryDistribution }
func (c *DayUsageConstraint) Hard() bool         { return false }

// Apply adds the same small term (w*0.01) to every (date, period) of
// every class. Since each class takes exactly one assignment, this
// shifts every complete schedule's objective by the same amount and
// favors no date over another; the day-count measure exists only in
// Score.
func (c *DayUsageConstraint) Apply(model Model, ctx *Context) {
	w := c.weight()
	for _, class := range ctx.Request.Classes {
		for dateIdx := range model.Dates() {
			for period := 1; period <= domain.MaxPeriod; period++ {
				model.AddSoftTerm(class.ID, dateIdx, period, w*0.01)
			}
		}
	}
}

func (c *DayUsageConstraint) Validate([]domain.Assignment, *Context) []domain.Violation {
	return nil // a preference signal, not a pass/fail rule
}

// Score returns the fraction of eligible days actually used, a 0..1
// measure. Neither the GA fitness function nor pkg/dashboard calls it.
func (c *DayUsageConstraint) Score(assignments []domain.Assignment, eligibleDays int) float64 {
	if eligibleDays == 0 {
		return 1
	}
	used := make(map[int64]bool)
	for _, a := range assignments {
		used[toUnixDay(a.Date)] = true
	}
	return float64(len(used)) / float64(eligibleDays)
}

// FinalWeekCompressionConstraint penalizes cramming assignments into
// the final week of the schedule. Validate reports a violation when
// more than ceil(total_classes/7) assignments land in the 7 days ending
// at the request's EndDate. Apply has no such allowance: it subtracts
// the weight from every (date, period) in the 7 days ending at the last
// eligible date.
type FinalWeekCompressionConstraint struct{ relaxState }

func NewFinalWeekCompressionConstraint(weight float64) *FinalWeekCompressionConstraint {
	return &FinalWeekCompressionConstraint{relaxState{base: weight}}
}

func (c *FinalWeekCompressionConstraint) Name() string       { return "final_week_compression" }
func (c *FinalWeekCompressionConstraint) Category() Category { return CategoryDistribution }
func (c *FinalWeekCompressionConstraint) Hard() bool         { return false }

func (c *FinalWeekCompressionConstraint) Apply(model Model, ctx *Context) {
	dates := model.Dates()
	if len(dates) == 0 {
		return
	}
	w := c.weight()
	finalWeekStart := dates[len(dates)-1] - 6
	for _, class := range ctx.Request.Classes {
		for dateIdx, day := range dates {
			if day < finalWeekStart {
				continue
			}
			for period := 1; period <= domain.MaxPeriod; period++ {
				model.AddSoftTerm(class.ID, dateIdx, period, -w)
			}
		}
	}
}

func (c *FinalWeekCompressionConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	if len(assignments) == 0 {
		return nil
	}
	lastDay := toUnixDay(ctx.Request.EndDate)
	finalWeekStart := lastDay - 6

	totalClasses := len(ctx.Request.Classes)
	inFinalWeek := 0
	for _, a := range assignments {
		if toUnixDay(a.Date) >= finalWeekStart {
			inFinalWeek++
		}
	}
	allowance := ceilDiv(totalClasses, 7)
	if inFinalWeek <= allowance {
		return nil
	}
	return []domain.Violation{{
		ConstraintName: "final_week_compression",
		Severity:       domain.SeverityWarning,
		Message:        fmt.Sprintf("%d classes compressed into the final week, allowance is %d", inFinalWeek, allowance),
		Context:        map[string]any{"count": inFinalWeek, "allowance": allowance},
	}}
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
