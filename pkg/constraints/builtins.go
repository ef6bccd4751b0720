package constraints

import "github.com/danfeder/classroom-scheduler/pkg/domain"

// DefaultRegistry builds the registry every strategy (CP, GA, meta)
// starts from: all built-in constraints registered and enabled, soft
// weights taken from req.Weights.
func DefaultRegistry(req *domain.ScheduleRequest) *Registry {
	r := NewRegistry()
	w := req.Weights

	mustRegister(r, SingleAssignmentConstraint{}, Metadata{Enabled: true})
	mustRegister(r, NoOverlapConstraint{}, Metadata{Enabled: true})
	mustRegister(r, ConflictConstraint{}, Metadata{Enabled: true})
	mustRegister(r, RequiredPeriodConstraint{}, Metadata{Enabled: true})
	mustRegister(r, InstructorUnavailableConstraint{}, Metadata{Enabled: true})
	mustRegister(r, MaxPerDayConstraint{}, Metadata{Enabled: true})
	mustRegister(r, MaxPerWeekConstraint{}, Metadata{Enabled: true})
	mustRegister(r, MinPerWeekConstraint{}, Metadata{Enabled: true})
	mustRegister(r, NewConsecutiveConstraint(req.Constraints.ConsecutiveRule), Metadata{Enabled: true})

	mustRegister(r, NewPreferredPeriodConstraint(float64(w.PreferredPeriods)), Metadata{
		Enabled: true, Weight: float64(w.PreferredPeriods),
	})
	mustRegister(r, NewAvoidPeriodConstraint(float64(w.AvoidPeriods)), Metadata{
		Enabled: true, Weight: float64(w.AvoidPeriods),
	})
	mustRegister(r, NewEarlierDatesConstraint(float64(w.EarlierDates)), Metadata{
		Enabled: true, Weight: float64(w.EarlierDates),
	})
	mustRegister(r, NewDistributionBalanceConstraint(float64(w.Distribution)), Metadata{
		Enabled: true, Weight: float64(w.Distribution),
	})
	mustRegister(r, NewDailyBalanceConstraint(float64(w.DailyBalance)), Metadata{
		Enabled: true, Weight: float64(w.DailyBalance),
	})
	mustRegister(r, NewDayUsageConstraint(float64(w.DayUsage)), Metadata{
		Enabled: true, Weight: float64(w.DayUsage),
	})
	mustRegister(r, NewFinalWeekCompressionConstraint(float64(w.FinalWeekCompression)), Metadata{
		Enabled: true, Weight: float64(w.FinalWeekCompression),
	})

	return r
}

func mustRegister(r *Registry, c Constraint, meta Metadata) {
	if err := r.Register(c, meta); err != nil {
		// Only reachable if DefaultRegistry itself registers a duplicate
		// name, which is a programmer error, not a runtime condition.
		panic(err)
	}
}
