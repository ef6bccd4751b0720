// Package constraints implements the scheduling engine's constraint
// library: a registry of named, composable rules each of which can add
// expressions to a CP model and independently validate a finished
// assignment set. This generalizes the teacher's flat
// constraints.ResourceConstraint/PDBConstraint closures (each a bare
// framework.Constraint func) into named, registerable units with
// metadata, compatibility and relaxation levels.
package constraints

import (
	"github.com/danfeder/classroom-scheduler/pkg/domain"
)

// Category groups constraints the way spec §4.1 does.
type Category string

const (
	CategorySchedule     Category = "schedule"
	CategoryInstructor   Category = "instructor"
	CategoryClass        Category = "class"
	CategoryDistribution Category = "distribution"
)

// Context carries everything a constraint needs to apply itself to a CP
// model or validate a finished assignment set: the request it's
// scheduling against and a lookup from class ID to Class.
type Context struct {
	Request   *domain.ScheduleRequest
	ClassByID map[string]*domain.Class
}

// NewContext builds a Context from a request, indexing classes by ID.
func NewContext(req *domain.ScheduleRequest) *Context {
	byID := make(map[string]*domain.Class, len(req.Classes))
	for i := range req.Classes {
		byID[req.Classes[i].ID] = &req.Classes[i]
	}
	return &Context{Request: req, ClassByID: byID}
}

// Model is the narrow view of a CP model a constraint needs: adding a
// boolean decision variable reference by (class, date, period) is owned
// by pkg/cp; constraints only add expressions over variables the model
// already created, so this is an interface rather than a concrete type
// to avoid a constraints -> cp import cycle.
type Model interface {
	// Forbid marks (classID, date, period) as infeasible (hard clause).
	Forbid(classID string, dateIdx int, period int)
	// AddSoftTerm adds weight * indicator(classID, dateIdx, period) to
	// the objective, where indicator is 1 iff that assignment is chosen.
	AddSoftTerm(classID string, dateIdx int, period int, weight float64)
	// Dates returns the eligible weekday dates in the model, in order;
	// dateIdx indexes into this slice.
	Dates() []int64 // unix-day indices, monotonically increasing
}

// Constraint is a single named scheduling rule. Relaxable constraints
// additionally implement Relaxable (see relax.go); non-relaxable
// constraints (the hard structural ones) don't need to.
type Constraint interface {
	// Name uniquely identifies this constraint in the registry.
	Name() string
	// Category classifies the constraint per spec §4.1.
	Category() Category
	// Hard reports whether this constraint must never be violated by a
	// CP solution (it still contributes a violation-count penalty if the
	// GA produces an assignment that breaks it).
	Hard() bool
	// Apply adds this constraint's hard clauses or soft-penalty terms to
	// model.
	Apply(model Model, ctx *Context)
	// Validate checks a finished assignment set and returns any
	// violations, in stable order by (constraint name, class id) as the
	// registry's ValidateAll guarantees overall.
	Validate(assignments []domain.Assignment, ctx *Context) []domain.Violation
}

// Metadata is the static description the registry keeps about a
// constraint, independent of the Constraint implementation itself.
type Metadata struct {
	Name             string
	Category         Category
	Weight           float64
	Enabled          bool
	RelaxationLevel  int
	IncompatibleWith []string
	Requires         []string
}
