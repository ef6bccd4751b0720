package constraints

import (
	"fmt"

	"github.com/danfeder/classroom-scheduler/pkg/domain"
)

// SingleAssignmentConstraint requires that every class in the request
// appears in the assignment set exactly once. The CP model enforces
// this directly through its per-class variable sum (sum_{d,p} x[c,d,p]
// == 1), so Apply is a no-op; this type exists to give the rule a name
// the registry and the driver's violation report can refer to, and to
// validate GA-produced chromosomes, which don't share the CP model's
// structural guarantee.
type SingleAssignmentConstraint struct{}

func (SingleAssignmentConstraint) Name() string       { return "single_assignment" }
func (SingleAssignmentConstraint) Category() Category { return CategorySchedule }
func (SingleAssignmentConstraint) Hard() bool         { return true }
func (SingleAssignmentConstraint) Apply(Model, *Context) {}

func (SingleAssignmentConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	counts := make(map[string]int, len(ctx.Request.Classes))
	for _, a := range assignments {
		counts[a.ClassID]++
	}
	var violations []domain.Violation
	for _, class := range ctx.Request.Classes {
		n := counts[class.ID]
		switch {
		case n == 0:
			violations = append(violations, domain.Violation{
				ConstraintName: "single_assignment",
				Severity:       domain.SeverityCritical,
				Message:        fmt.Sprintf("class %s has no assignment", class.ID),
				ClassID:        class.ID,
			})
		case n > 1:
			violations = append(violations, domain.Violation{
				ConstraintName: "single_assignment",
				Severity:       domain.SeverityCritical,
				Message:        fmt.Sprintf("class %s is assigned %d times", class.ID, n),
				ClassID:        class.ID,
				Context:        map[string]any{"count": n},
			})
		}
	}
	return violations
}

// NoOverlapConstraint requires that no two classes share a (date,
// period) slot. The CP model enforces this through a per-slot capacity
// constraint (sum_c x[c,d,p] <= 1); Apply is a no-op here for the same
// reason as SingleAssignmentConstraint.
type NoOverlapConstraint struct{}

func (NoOverlapConstraint) Name() string       { return "no_overlap" }
func (NoOverlapConstraint) Category() Category { return CategorySchedule }
func (NoOverlapConstraint) Hard() bool         { return true }
func (NoOverlapConstraint) Apply(Model, *Context) {}

func (NoOverlapConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	type key struct {
		day    int64
		period int
	}
	bySlot := make(map[key][]string)
	for _, a := range assignments {
		k := key{toUnixDay(a.Date), a.TimeSlot.Period}
		bySlot[k] = append(bySlot[k], a.ClassID)
	}
	var violations []domain.Violation
	for _, classIDs := range bySlot {
		if len(classIDs) <= 1 {
			continue
		}
		for _, classID := range classIDs {
			violations = append(violations, domain.Violation{
				ConstraintName: "no_overlap",
				Severity:       domain.SeverityCritical,
				Message:        fmt.Sprintf("class %s shares a slot with %d other classes", classID, len(classIDs)-1),
				ClassID:        classID,
				Context:        map[string]any{"sharing_classes": classIDs},
			})
		}
	}
	return violations
}

// ConflictConstraint forbids assigning a class to a (day_of_week,
// period) slot listed in its Conflicts set.
type ConflictConstraint struct{}

func (ConflictConstraint) Name() string       { return "conflict" }
func (ConflictConstraint) Category() Category { return CategoryClass }
func (ConflictConstraint) Hard() bool         { return true }

func (ConflictConstraint) Apply(model Model, ctx *Context) {
	for _, class := range ctx.Request.Classes {
		for dateIdx, day := range model.Dates() {
			weekday := weekdayOf(day)
			for period := 1; period <= domain.MaxPeriod; period++ {
				if class.ConflictsWith(domain.TimeSlot{DayOfWeek: weekday, Period: period}) {
					model.Forbid(class.ID, dateIdx, period)
				}
			}
		}
	}
}

func (ConflictConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	var violations []domain.Violation
	for _, a := range assignments {
		class := ctx.ClassByID[a.ClassID]
		if class == nil {
			continue
		}
		if class.ConflictsWith(a.TimeSlot) {
			violations = append(violations, domain.Violation{
				ConstraintName: "conflict",
				Severity:       domain.SeverityCritical,
				Message:        fmt.Sprintf("class %s assigned to a conflicting slot %+v", a.ClassID, a.TimeSlot),
				ClassID:        a.ClassID,
			})
		}
	}
	return violations
}

// RequiredPeriodConstraint forbids a class with a non-empty
// RequiredPeriods set from landing anywhere but one of those concrete
// (date, period) pairs.
type RequiredPeriodConstraint struct{}

func (RequiredPeriodConstraint) Name() string       { return "required_period" }
func (RequiredPeriodConstraint) Category() Category { return CategoryClass }
func (RequiredPeriodConstraint) Hard() bool         { return true }

func (RequiredPeriodConstraint) Apply(model Model, ctx *Context) {
	for _, class := range ctx.Request.Classes {
		if len(class.RequiredPeriods) == 0 {
			continue
		}
		allowed := make(map[[2]int]bool, len(class.RequiredPeriods))
		for dateIdx, day := range model.Dates() {
			for _, rp := range class.RequiredPeriods {
				if toUnixDay(rp.Date) == day {
					allowed[[2]int{dateIdx, rp.Period}] = true
				}
			}
		}
		for dateIdx := range model.Dates() {
			for period := 1; period <= domain.MaxPeriod; period++ {
				if !allowed[[2]int{dateIdx, period}] {
					model.Forbid(class.ID, dateIdx, period)
				}
			}
		}
	}
}

func (RequiredPeriodConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	var violations []domain.Violation
	for _, a := range assignments {
		class := ctx.ClassByID[a.ClassID]
		if class == nil {
			continue
		}
		required, satisfied := class.RequiresDate(a.Date, a.TimeSlot.Period)
		if required && !satisfied {
			violations = append(violations, domain.Violation{
				ConstraintName: "required_period",
				Severity:       domain.SeverityCritical,
				Message:        fmt.Sprintf("class %s missed its required period", a.ClassID),
				ClassID:        a.ClassID,
			})
		}
	}
	return violations
}

// InstructorUnavailableConstraint forbids any class from landing on a
// slot the instructor has marked unavailable on that date.
type InstructorUnavailableConstraint struct{}

func (InstructorUnavailableConstraint) Name() string       { return "instructor_unavailable" }
func (InstructorUnavailableConstraint) Category() Category { return CategoryInstructor }
func (InstructorUnavailableConstraint) Hard() bool         { return true }

func (InstructorUnavailableConstraint) Apply(model Model, ctx *Context) {
	for dateIdx, day := range model.Dates() {
		date := fromUnixDay(day)
		avail := ctx.Request.AvailabilityFor(date)
		if avail == nil {
			continue
		}
		for _, slot := range avail.Unavailable {
			for _, class := range ctx.Request.Classes {
				model.Forbid(class.ID, dateIdx, slot.Period)
			}
		}
	}
}

func (InstructorUnavailableConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	var violations []domain.Violation
	for _, a := range assignments {
		avail := ctx.Request.AvailabilityFor(a.Date)
		if avail == nil {
			continue
		}
		if avail.IsUnavailable(a.TimeSlot) {
			violations = append(violations, domain.Violation{
				ConstraintName: "instructor_unavailable",
				Severity:       domain.SeverityCritical,
				Message:        fmt.Sprintf("class %s assigned while instructor unavailable", a.ClassID),
				ClassID:        a.ClassID,
			})
		}
	}
	return violations
}

// MaxPerDayConstraint bounds how many classes can be scheduled on a
// single date. Apply is a no-op: the bound spans all classes on a date
// at once, which the CP model encodes as a per-date capacity
// constraint over its own variable indexing rather than through Forbid.
type MaxPerDayConstraint struct{}

func (MaxPerDayConstraint) Name() string       { return "max_per_day" }
func (MaxPerDayConstraint) Category() Category { return CategorySchedule }
func (MaxPerDayConstraint) Hard() bool         { return true }
func (MaxPerDayConstraint) Apply(Model, *Context) {}

func (MaxPerDayConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	limit := ctx.Request.Constraints.MaxClassesPerDay
	if limit <= 0 {
		return nil
	}
	counts := make(map[int64]int)
	for _, a := range assignments {
		counts[toUnixDay(a.Date)]++
	}
	var violations []domain.Violation
	for day, count := range counts {
		if count > limit {
			violations = append(violations, domain.Violation{
				ConstraintName: "max_per_day",
				Severity:       domain.SeverityError,
				Message:        fmt.Sprintf("%d classes scheduled on %s, limit is %d", count, fromUnixDay(day).Format("2006-01-02"), limit),
			})
		}
	}
	return violations
}

// MaxPerWeekConstraint bounds how many classes can be scheduled in a
// single ISO week.
type MaxPerWeekConstraint struct{}

func (MaxPerWeekConstraint) Name() string       { return "max_per_week" }
func (MaxPerWeekConstraint) Category() Category { return CategorySchedule }
func (MaxPerWeekConstraint) Hard() bool         { return true }
func (MaxPerWeekConstraint) Apply(Model, *Context) {}

func (MaxPerWeekConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	limit := ctx.Request.Constraints.MaxClassesPerWeek
	if limit <= 0 {
		return nil
	}
	return validateWeeklyBound(assignments, limit, true, "max_per_week")
}

// MinPerWeekConstraint requires at least this many classes in every ISO
// week that holds at least one assignment. Weeks of the range with no
// assignment are not checked, and partial weeks at either end of the
// range are held to the full bound (no pro-rating).
type MinPerWeekConstraint struct{}

func (MinPerWeekConstraint) Name() string       { return "min_per_week" }
func (MinPerWeekConstraint) Category() Category { return CategorySchedule }
func (MinPerWeekConstraint) Hard() bool         { return true }
func (MinPerWeekConstraint) Apply(Model, *Context) {}

func (MinPerWeekConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	limit := ctx.Request.Constraints.MinClassesPerWeek
	if limit <= 0 {
		return nil
	}
	return validateWeeklyBound(assignments, limit, false, "min_per_week")
}

func validateWeeklyBound(assignments []domain.Assignment, limit int, isMax bool, name string) []domain.Violation {
	counts := make(map[int]int)
	for _, a := range assignments {
		year, week := a.Date.ISOWeek()
		counts[year*100+week]++
	}
	var violations []domain.Violation
	for wk, count := range counts {
		broke := (isMax && count > limit) || (!isMax && count < limit)
		if !broke {
			continue
		}
		violations = append(violations, domain.Violation{
			ConstraintName: name,
			Severity:       domain.SeverityError,
			Message:        fmt.Sprintf("week %d has %d classes, limit is %d", wk, count, limit),
		})
	}
	return violations
}

// ConsecutiveConstraint bounds how many consecutive periods may be
// occupied back to back on the same date, counting the assignments of
// all classes on that date. Hard() follows the request's
// ConsecutiveRule (true for hard, false for soft); soft-mode violations
// are reported with warning severity.
type ConsecutiveConstraint struct {
	ruleIsHard bool
}

// NewConsecutiveConstraint builds the constraint honoring
// constraints.ConsecutiveRule from the request.
func NewConsecutiveConstraint(rule domain.ConsecutiveRule) *ConsecutiveConstraint {
	return &ConsecutiveConstraint{ruleIsHard: rule != domain.ConsecutiveSoft}
}

func (c *ConsecutiveConstraint) Name() string       { return "consecutive" }
func (c *ConsecutiveConstraint) Category() Category { return CategorySchedule }
func (c *ConsecutiveConstraint) Hard() bool         { return c.ruleIsHard }
func (c *ConsecutiveConstraint) Apply(Model, *Context) {}

func (c *ConsecutiveConstraint) Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	maxRun := ctx.Request.Constraints.MaxConsecutive
	if maxRun <= 0 {
		return nil
	}
	periodsByDate := make(map[int64][]int)
	for _, a := range assignments {
		day := toUnixDay(a.Date)
		periodsByDate[day] = append(periodsByDate[day], a.TimeSlot.Period)
	}
	var violations []domain.Violation
	for day, periods := range periodsByDate {
		run := longestConsecutiveRun(periods)
		if run > maxRun {
			violations = append(violations, domain.Violation{
				ConstraintName: "consecutive",
				Severity:       severityFor(c.ruleIsHard),
				Message:        fmt.Sprintf("%s has a run of %d consecutive periods, limit is %d", fromUnixDay(day).Format("2006-01-02"), run, maxRun),
			})
		}
	}
	return violations
}

func severityFor(hard bool) domain.Severity {
	if hard {
		return domain.SeverityError
	}
	return domain.SeverityWarning
}

func longestConsecutiveRun(periods []int) int {
	if len(periods) == 0 {
		return 0
	}
	seen := make(map[int]bool, len(periods))
	for _, p := range periods {
		seen[p] = true
	}
	best, cur := 1, 1
	sorted := make([]int, 0, len(seen))
	for p := range seen {
		sorted = append(sorted, p)
	}
	sortInts(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1]+1 {
			cur++
		} else {
			cur = 1
		}
		if cur > best {
			best = cur
		}
	}
	return best
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
