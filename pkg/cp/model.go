// Package cp implements the constraint-programming solver adapter: it
// builds a boolean decision-variable model from a schedule request and
// its enabled constraints, then searches for a feasible (or optimal,
// under a wall-clock budget) assignment via branch-and-bound.
package cp

import (
	"sort"
	"time"

	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
)

// varKey identifies one boolean decision variable x[c,d,p]: class c
// assigned to the dateIdx'th eligible date, period p.
type varKey struct {
	classID string
	dateIdx int
	period  int
}

// Model is the CP formulation: one boolean variable per (class, date,
// period), a domain of forbidden combinations and accumulated soft
// weights forming the objective. It implements constraints.Model so
// the shared constraint library can populate it directly.
type Model struct {
	classIDs []string
	dates    []int64 // unix-day indices, ascending
	forbidden map[varKey]bool
	softWeights map[varKey]float64
}

// NewModel builds an empty model over req's classes and the weekday
// dates in [req.StartDate, req.EndDate].
func NewModel(req *domain.ScheduleRequest) *Model {
	m := &Model{
		forbidden:   make(map[varKey]bool),
		softWeights: make(map[varKey]float64),
	}
	for _, c := range req.Classes {
		m.classIDs = append(m.classIDs, c.ID)
	}
	for d := req.StartDate; !d.After(req.EndDate); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		m.dates = append(m.dates, d.Unix()/86400)
	}
	sort.Slice(m.dates, func(i, j int) bool { return m.dates[i] < m.dates[j] })
	return m
}

// Dates implements constraints.Model.
func (m *Model) Dates() []int64 { return m.dates }

// Forbid implements constraints.Model.
func (m *Model) Forbid(classID string, dateIdx int, period int) {
	m.forbidden[varKey{classID, dateIdx, period}] = true
}

// AddSoftTerm implements constraints.Model.
func (m *Model) AddSoftTerm(classID string, dateIdx int, period int, weight float64) {
	m.softWeights[varKey{classID, dateIdx, period}] += weight
}

// Feasible reports whether (classID, dateIdx, period) is a legal
// assignment under the hard clauses gathered so far.
func (m *Model) Feasible(classID string, dateIdx int, period int) bool {
	return !m.forbidden[varKey{classID, dateIdx, period}]
}

// SoftWeight returns the accumulated soft-term weight for an
// assignment, 0 if none was added.
func (m *Model) SoftWeight(classID string, dateIdx int, period int) float64 {
	return m.softWeights[varKey{classID, dateIdx, period}]
}

// DateAt converts a dateIdx back to a time.Time (UTC midnight).
func (m *Model) DateAt(dateIdx int) time.Time {
	return time.Unix(m.dates[dateIdx]*86400, 0).UTC()
}

// Build populates the model by running every enabled constraint's
// Apply over it.
func Build(req *domain.ScheduleRequest, registry *constraints.Registry) *Model {
	m := NewModel(req)
	ctx := constraints.NewContext(req)
	registry.Apply(m, ctx)
	return m
}
