// Package domain holds the scheduling problem's core data model: classes,
// time slots, assignments, instructor availability and the weight
// configuration the optimizers score candidate schedules against.
package domain

import (
	"time"
)

// MaxPeriod is P in the spec: periods run 1..MaxPeriod inclusive.
const MaxPeriod = 8

// TimeSlot is a (weekday, period) pair. DayOfWeek follows time.Weekday's
// convention restricted to Monday(1)..Friday(5).
type TimeSlot struct {
	DayOfWeek int `json:"dayOfWeek"`
	Period    int `json:"period"`
}

// Valid reports whether the slot's day and period fall within range.
func (t TimeSlot) Valid() bool {
	return t.DayOfWeek >= 1 && t.DayOfWeek <= 5 && t.Period >= 1 && t.Period <= MaxPeriod
}

// WeightedSlot pairs a TimeSlot with a soft-preference weight, used for
// both PreferredPeriods and AvoidPeriods. The CP objective and the GA
// fitness multiply it by the matching WeightConfig weight, so the sign
// comes from WeightConfig: a positive per-slot weight in AvoidPeriods
// yields a penalty under the conventionally negative
// WeightConfig.AvoidPeriods.
type WeightedSlot struct {
	Slot   TimeSlot `json:"slot"`
	Weight float64  `json:"weight"`
}

// RequiredPeriod is a concrete (date, period) a class must land on when
// its RequiredPeriods set is non-empty. Flattening of weekly
// {day_of_week, period} patterns into concrete dates happens at the
// config-loading boundary (internal/config), never inside domain.
type RequiredPeriod struct {
	Date   time.Time `json:"date"`
	Period int       `json:"period"`
}

// Class is a homeroom that must be scheduled exactly once within the
// request's date range.
type Class struct {
	ID               string
	Grade            string
	Conflicts        []TimeSlot
	RequiredPeriods  []RequiredPeriod
	PreferredPeriods []WeightedSlot
	AvoidPeriods     []WeightedSlot
}

// ConflictsWith reports whether slot matches one of the class's hard
// conflicts, by (day_of_week, period).
func (c *Class) ConflictsWith(slot TimeSlot) bool {
	for _, cf := range c.Conflicts {
		if cf == slot {
			return true
		}
	}
	return false
}

// RequiresDate reports whether the class has a non-empty required-period
// set and, if so, whether (date, period) is one of them.
func (c *Class) RequiresDate(date time.Time, period int) (required bool, satisfied bool) {
	if len(c.RequiredPeriods) == 0 {
		return false, false
	}
	for _, rp := range c.RequiredPeriods {
		if sameDate(rp.Date, date) && rp.Period == period {
			return true, true
		}
	}
	return true, false
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// InstructorAvailability captures one date's unavailable slots, plus
// optional preferred/avoid overlays. Only Unavailable is read by the
// built-in constraints and the GA; Preferred and Avoid are carried but
// not scored.
type InstructorAvailability struct {
	Date         time.Time
	Unavailable  []TimeSlot
	Preferred    []WeightedSlot
	Avoid        []WeightedSlot
}

// IsUnavailable reports whether slot is blocked on this date.
func (ia *InstructorAvailability) IsUnavailable(slot TimeSlot) bool {
	for _, u := range ia.Unavailable {
		if u == slot {
			return true
		}
	}
	return false
}

// ConsecutiveRule selects whether the Consecutive constraint is enforced
// as a hard rule or converted to a soft penalty.
type ConsecutiveRule string

const (
	ConsecutiveHard ConsecutiveRule = "hard"
	ConsecutiveSoft ConsecutiveRule = "soft"
)

// SchedulingConstraints holds the request-level numeric/structural
// knobs that bound class counts and consecutive runs.
type SchedulingConstraints struct {
	MaxClassesPerDay    int
	MaxClassesPerWeek   int
	MinClassesPerWeek   int
	MaxConsecutive      int // 1 or 2
	ConsecutiveRule     ConsecutiveRule
}

// WeightConfig is the mapping from soft-constraint name to integer
// weight used by both the CP objective and the GA fitness function.
// Preferred/daily/distribution weights are conventionally >= 0;
// AvoidPeriods is conventionally <= 0.
type WeightConfig struct {
	FinalWeekCompression int `json:"finalWeekCompression"`
	DayUsage             int `json:"dayUsage"`
	DailyBalance         int `json:"dailyBalance"`
	PreferredPeriods     int `json:"preferredPeriods"`
	Distribution         int `json:"distribution"`
	AvoidPeriods         int `json:"avoidPeriods"`
	EarlierDates         int `json:"earlierDates"`
}

// DefaultWeightConfig returns the baseline weighting used when a request
// doesn't specify one.
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		FinalWeekCompression: 10,
		DayUsage:             5,
		DailyBalance:         8,
		PreferredPeriods:     12,
		Distribution:         8,
		AvoidPeriods:         -12,
		EarlierDates:         2,
	}
}

// ScheduleRequest is the immutable input to a single driver invocation:
// the full roster, instructor availability, date range and structural
// constraints.
type ScheduleRequest struct {
	Classes                []Class
	InstructorAvailability []InstructorAvailability
	StartDate              time.Time
	EndDate                time.Time
	Constraints            SchedulingConstraints
	Weights                WeightConfig
}

// AvailabilityFor returns the InstructorAvailability entry for date, or
// nil if none was supplied (meaning everything is available).
func (r *ScheduleRequest) AvailabilityFor(date time.Time) *InstructorAvailability {
	for i := range r.InstructorAvailability {
		if sameDate(r.InstructorAvailability[i].Date, date) {
			return &r.InstructorAvailability[i]
		}
	}
	return nil
}

// Assignment maps one class to a concrete (date, time slot). date must
// fall on a weekday within the request's range, and slot.DayOfWeek must
// equal the weekday of date.
type Assignment struct {
	ClassID  string   `json:"classId"`
	Date     time.Time `json:"date"`
	TimeSlot TimeSlot `json:"timeSlot"`
}

// Severity is a closed enum of violation severities, most to least
// serious as critical > error > warning > info.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Violation records one constraint's complaint about an assignment set.
type Violation struct {
	ConstraintName string
	Severity       Severity
	Message        string
	ClassID        string
	Context        map[string]any
}

// Chromosome is a candidate full assignment: one gene (Assignment) per
// class, in request.Classes order. Fitness is computed lazily and cached;
// ⊥ is represented by an unset fitness (Fitness reports ok == false).
type Chromosome struct {
	Genes              []Assignment
	fitness            float64
	hasFitness         bool
	ConstraintViolations int
	createdAt          uint64 // monotonically increasing creation order, used as a selection tiebreaker
}

// NewChromosome wraps genes with no fitness computed yet.
func NewChromosome(genes []Assignment, createdAt uint64) *Chromosome {
	return &Chromosome{Genes: genes, createdAt: createdAt}
}

// Fitness returns the cached fitness and whether it has been computed.
func (c *Chromosome) Fitness() (float64, bool) {
	return c.fitness, c.hasFitness
}

// SetFitness caches a computed fitness value.
func (c *Chromosome) SetFitness(f float64) {
	c.fitness = f
	c.hasFitness = true
}

// CreatedAt returns the chromosome's creation order, used to break ties
// between equally-fit, equally-violating chromosomes (earlier wins).
func (c *Chromosome) CreatedAt() uint64 {
	return c.createdAt
}

// Clone deep-copies the chromosome's genes (but not its cached fitness,
// which callers should recompute after mutation).
func (c *Chromosome) Clone(createdAt uint64) *Chromosome {
	genes := make([]Assignment, len(c.Genes))
	copy(genes, c.Genes)
	return NewChromosome(genes, createdAt)
}

// Population is a generation of chromosomes plus bookkeeping.
type Population struct {
	Chromosomes []*Chromosome
	Generation  int
	Best        *Chromosome
}
