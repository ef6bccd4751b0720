package constraints

import (
	"fmt"
	"sort"

	"github.com/danfeder/classroom-scheduler/pkg/domain"
)

// entry pairs a registered constraint with its mutable metadata.
type entry struct {
	constraint Constraint
	meta       Metadata
}

// Registry holds the set of constraints active for a run: registration
// by name, lookup by category, a compatibility table, and batch
// apply/validate helpers the CP and GA layers share.
type Registry struct {
	entries map[string]*entry
	order   []string // registration order, for stable ValidateAll output
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds c to the registry under the given metadata. meta.Name
// is overwritten with c.Name() and meta.Category with c.Category() so
// callers only need to set Weight/Enabled/RelaxationLevel/compat lists.
// Returns an error if the name is already registered.
func (r *Registry) Register(c Constraint, meta Metadata) error {
	meta.Name = c.Name()
	meta.Category = c.Category()
	if _, exists := r.entries[meta.Name]; exists {
		return fmt.Errorf("constraints: %q already registered", meta.Name)
	}
	r.entries[meta.Name] = &entry{constraint: c, meta: meta}
	r.order = append(r.order, meta.Name)
	return nil
}

// Get returns the constraint registered under name, or nil if absent.
func (r *Registry) Get(name string) Constraint {
	if e, ok := r.entries[name]; ok {
		return e.constraint
	}
	return nil
}

// Metadata returns the metadata for name, or the zero value and false
// if name isn't registered.
func (r *Registry) Metadata(name string) (Metadata, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Metadata{}, false
	}
	return e.meta, true
}

// SetEnabled toggles whether name participates in Apply/Validate.
func (r *Registry) SetEnabled(name string, enabled bool) {
	if e, ok := r.entries[name]; ok {
		e.meta.Enabled = enabled
	}
}

// SetRelaxationLevel updates the relaxation level for name, applying it
// to the underlying constraint if it implements Relaxable.
func (r *Registry) SetRelaxationLevel(name string, level int) {
	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.meta.RelaxationLevel = level
	if rc, ok := e.constraint.(Relaxable); ok {
		rc.SetRelaxationLevel(level)
	}
}

// ByCategory returns the names of enabled constraints in category, in
// registration order.
func (r *Registry) ByCategory(cat Category) []string {
	var names []string
	for _, name := range r.order {
		e := r.entries[name]
		if e.meta.Enabled && e.meta.Category == cat {
			names = append(names, name)
		}
	}
	return names
}

// Enabled returns all enabled constraint names in registration order.
func (r *Registry) Enabled() []string {
	var names []string
	for _, name := range r.order {
		if r.entries[name].meta.Enabled {
			names = append(names, name)
		}
	}
	return names
}

// ValidateCompatibility checks that no two enabled constraints declare
// each other incompatible, and that every "requires" dependency of an
// enabled constraint is itself enabled. Returns all problems found, not
// just the first.
func (r *Registry) ValidateCompatibility() []error {
	var errs []error
	enabled := make(map[string]bool)
	for _, name := range r.Enabled() {
		enabled[name] = true
	}
	for _, name := range r.Enabled() {
		meta := r.entries[name].meta
		for _, other := range meta.IncompatibleWith {
			if enabled[other] {
				errs = append(errs, fmt.Errorf("constraints: %q is incompatible with enabled constraint %q", name, other))
			}
		}
		for _, req := range meta.Requires {
			if !enabled[req] {
				errs = append(errs, fmt.Errorf("constraints: %q requires %q, which is not enabled", name, req))
			}
		}
	}
	return errs
}

// Apply runs Apply on every enabled constraint, in registration order.
func (r *Registry) Apply(model Model, ctx *Context) {
	for _, name := range r.order {
		e := r.entries[name]
		if e.meta.Enabled {
			e.constraint.Apply(model, ctx)
		}
	}
}

// ValidateAll runs Validate on every enabled constraint and returns the
// concatenated violations, sorted by (constraint name, class id) for
// deterministic output regardless of registration order.
func (r *Registry) ValidateAll(assignments []domain.Assignment, ctx *Context) []domain.Violation {
	var violations []domain.Violation
	for _, name := range r.order {
		e := r.entries[name]
		if e.meta.Enabled {
			violations = append(violations, e.constraint.Validate(assignments, ctx)...)
		}
	}
	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].ConstraintName != violations[j].ConstraintName {
			return violations[i].ConstraintName < violations[j].ConstraintName
		}
		return violations[i].ClassID < violations[j].ClassID
	})
	return violations
}

// HardViolationCount returns the count of violations whose owning
// constraint is Hard(), used by the GA as a feasibility penalty term.
func (r *Registry) HardViolationCount(assignments []domain.Assignment, ctx *Context) int {
	count := 0
	for _, name := range r.order {
		e := r.entries[name]
		if e.meta.Enabled && e.constraint.Hard() {
			count += len(e.constraint.Validate(assignments, ctx))
		}
	}
	return count
}
