// Package config loads a ScheduleRequest and a driver.Config from a
// YAML or JSON file, applies defaults and runs the pre-solve validation
// the driver itself doesn't own, following the teacher's
// SetDefaults_MultiObjectiveArgs/ValidateMultiObjectiveArgs split.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/danfeder/classroom-scheduler/internal/errs"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"github.com/danfeder/classroom-scheduler/pkg/driver"
	"sigs.k8s.io/yaml"
)

// defaultTimeLimitSeconds and the rest mirror spec §6's "Configuration
// recognized options" table.
const (
	defaultTimeLimitSeconds = 300
	defaultMaxRelaxation    = driver.DefaultMaxRelaxationLevel
)

// slotPattern is a (day_of_week, period) file entry, used for
// conflicts/preferred/avoid and for the weekly form of required_periods.
type slotPattern struct {
	DayOfWeek int `json:"dayOfWeek"`
	Period    int `json:"period"`
	Weight    float64 `json:"weight,omitempty"`
}

// requiredPeriodPattern accepts either a concrete date or a weekly
// (day_of_week, period) pattern, per spec §6's request shape;
// flattenRequiredPeriods expands the weekly form into every matching
// date in range.
type requiredPeriodPattern struct {
	Date      string `json:"date,omitempty"`
	DayOfWeek int    `json:"dayOfWeek,omitempty"`
	Period    int    `json:"period"`
}

type classFile struct {
	ID               string                  `json:"id"`
	Grade            string                  `json:"grade"`
	Conflicts        []slotPattern           `json:"conflicts"`
	RequiredPeriods  []requiredPeriodPattern `json:"requiredPeriods"`
	PreferredPeriods []slotPattern           `json:"preferredPeriods"`
	AvoidPeriods     []slotPattern           `json:"avoidPeriods"`
}

type availabilityFile struct {
	Date        string        `json:"date"`
	Unavailable []slotPattern `json:"unavailable"`
}

type constraintsFile struct {
	MaxClassesPerDay    int    `json:"maxClassesPerDay"`
	MaxClassesPerWeek   int    `json:"maxClassesPerWeek"`
	MinClassesPerWeek   int    `json:"minClassesPerWeek"`
	MaxConsecutive      int    `json:"maxConsecutiveClasses"`
	ConsecutiveRule     string `json:"consecutiveClassesRule"`
}

type weightsFile struct {
	FinalWeekCompression *int `json:"finalWeekCompression"`
	DayUsage             *int `json:"dayUsage"`
	DailyBalance         *int `json:"dailyBalance"`
	PreferredPeriods     *int `json:"preferredPeriods"`
	Distribution         *int `json:"distribution"`
	AvoidPeriods         *int `json:"avoidPeriods"`
	EarlierDates         *int `json:"earlierDates"`
}

type geneticFile struct {
	PopulationSize int     `json:"populationSize"`
	EliteSize      int     `json:"eliteSize"`
	MutationRate   float64 `json:"mutationRate"`
	CrossoverRate  float64 `json:"crossoverRate"`
	MaxGenerations int     `json:"maxGenerations"`
	Adaptive       bool    `json:"adaptive"`
	Parallel       bool    `json:"parallel"`
}

type solverFile struct {
	Strategy           string      `json:"strategy"`
	TimeLimitSeconds   int         `json:"timeLimitS"`
	Seed               *uint64     `json:"seed"`
	Genetic            geneticFile `json:"genetic"`
	MaxRelaxationLevel int         `json:"maxRelaxationLevel"`
	OTELEndpoint       string      `json:"otelEndpoint"`
}

// File is the on-disk shape cmd/schedgen reads, mirroring spec §6's
// Solve API request body.
type File struct {
	Classes                []classFile        `json:"classes"`
	InstructorAvailability []availabilityFile `json:"instructorAvailability"`
	StartDate              string             `json:"startDate"`
	EndDate                string             `json:"endDate"`
	Constraints            constraintsFile    `json:"constraints"`
	Weights                weightsFile        `json:"weights"`
	Solver                 solverFile         `json:"solver"`
}

// Load reads path (YAML or JSON; sigs.k8s.io/yaml accepts both), applies
// SetDefaults, runs Validate and returns the decoded ScheduleRequest and
// driver.Config ready to hand to driver.NewBuilder.
func Load(path string) (*domain.ScheduleRequest, driver.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, driver.Config{}, errs.ConfigError("reading %s: %v", path, err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, driver.Config{}, errs.ConfigError("parsing %s: %v", path, err)
	}
	SetDefaults(&f)
	if err := Validate(&f); err != nil {
		return nil, driver.Config{}, err
	}
	req, err := toRequest(&f)
	if err != nil {
		return nil, driver.Config{}, err
	}
	return req, toDriverConfig(&f), nil
}

// SetDefaults fills in every optional field File leaves zero, mirroring
// the teacher's SetDefaults_MultiObjectiveArgs: no validation here, only
// fallback values.
func SetDefaults(f *File) {
	if f.Constraints.ConsecutiveRule == "" {
		f.Constraints.ConsecutiveRule = string(domain.ConsecutiveHard)
	}
	if f.Constraints.MaxConsecutive == 0 {
		f.Constraints.MaxConsecutive = 2
	}
	w := domain.DefaultWeightConfig()
	setDefaultInt(&f.Weights.FinalWeekCompression, w.FinalWeekCompression)
	setDefaultInt(&f.Weights.DayUsage, w.DayUsage)
	setDefaultInt(&f.Weights.DailyBalance, w.DailyBalance)
	setDefaultInt(&f.Weights.PreferredPeriods, w.PreferredPeriods)
	setDefaultInt(&f.Weights.Distribution, w.Distribution)
	setDefaultInt(&f.Weights.AvoidPeriods, w.AvoidPeriods)
	setDefaultInt(&f.Weights.EarlierDates, w.EarlierDates)

	if f.Solver.Strategy == "" {
		f.Solver.Strategy = string(driver.StrategyAuto)
	}
	if f.Solver.TimeLimitSeconds <= 0 {
		f.Solver.TimeLimitSeconds = defaultTimeLimitSeconds
	}
	if f.Solver.MaxRelaxationLevel <= 0 {
		f.Solver.MaxRelaxationLevel = defaultMaxRelaxation
	}
	if f.Solver.Genetic.PopulationSize <= 0 {
		f.Solver.Genetic.PopulationSize = 100
	}
	if f.Solver.Genetic.EliteSize <= 0 {
		f.Solver.Genetic.EliteSize = f.Solver.Genetic.PopulationSize / 20
		if f.Solver.Genetic.EliteSize < 1 {
			f.Solver.Genetic.EliteSize = 1
		}
	}
	if f.Solver.Genetic.MaxGenerations <= 0 {
		f.Solver.Genetic.MaxGenerations = 500
	}
}

func setDefaultInt(field **int, fallback int) {
	if *field == nil {
		v := fallback
		*field = &v
	}
}

// Validate mirrors the teacher's ValidateMultiObjectiveArgs: range and
// consistency checks only, run after SetDefaults, returning a
// ConfigError (never a bare error) so the driver's error-kind
// hierarchy stays the single source of truth for what's fatal.
func Validate(f *File) error {
	if len(f.Classes) == 0 {
		return errs.ConfigError("classes must not be empty")
	}
	seen := make(map[string]bool, len(f.Classes))
	for _, c := range f.Classes {
		if c.ID == "" {
			return errs.ConfigError("every class must have a non-empty id")
		}
		if seen[c.ID] {
			return errs.ConfigError("duplicate class id %q", c.ID)
		}
		seen[c.ID] = true
	}
	if f.StartDate == "" || f.EndDate == "" {
		return errs.ConfigError("startDate and endDate are required")
	}
	start, err := time.Parse("2006-01-02", f.StartDate)
	if err != nil {
		return errs.ConfigError("invalid startDate %q: %v", f.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", f.EndDate)
	if err != nil {
		return errs.ConfigError("invalid endDate %q: %v", f.EndDate, err)
	}
	if end.Before(start) {
		return errs.ConfigError("endDate %s is before startDate %s", f.EndDate, f.StartDate)
	}
	if f.Constraints.MinClassesPerWeek > 0 && f.Constraints.MaxClassesPerWeek > 0 &&
		f.Constraints.MinClassesPerWeek > f.Constraints.MaxClassesPerWeek {
		return errs.ConfigError("minClassesPerWeek (%d) exceeds maxClassesPerWeek (%d)",
			f.Constraints.MinClassesPerWeek, f.Constraints.MaxClassesPerWeek)
	}
	if f.Constraints.MaxConsecutive != 1 && f.Constraints.MaxConsecutive != 2 {
		return errs.ConfigError("maxConsecutiveClasses must be 1 or 2, got %d", f.Constraints.MaxConsecutive)
	}
	switch domain.ConsecutiveRule(f.Constraints.ConsecutiveRule) {
	case domain.ConsecutiveHard, domain.ConsecutiveSoft:
	default:
		return errs.ConfigError("consecutiveClassesRule must be hard or soft, got %q", f.Constraints.ConsecutiveRule)
	}
	if *f.Weights.AvoidPeriods > 0 {
		return errs.ConfigError("avoidPeriods weight must be <= 0 by convention, got %d", *f.Weights.AvoidPeriods)
	}
	for _, name := range []struct {
		label string
		value int
	}{
		{"finalWeekCompression", *f.Weights.FinalWeekCompression},
		{"dayUsage", *f.Weights.DayUsage},
		{"dailyBalance", *f.Weights.DailyBalance},
		{"preferredPeriods", *f.Weights.PreferredPeriods},
		{"distribution", *f.Weights.Distribution},
		{"earlierDates", *f.Weights.EarlierDates},
	} {
		if name.value < 0 {
			return errs.ConfigError("%s weight must be >= 0, got %d", name.label, name.value)
		}
	}
	switch driver.Strategy(f.Solver.Strategy) {
	case driver.StrategyAuto, driver.StrategyCP, driver.StrategyGA, driver.StrategyCPThenGA:
	default:
		return errs.ConfigError("unknown solver strategy %q", f.Solver.Strategy)
	}
	return nil
}

func toRequest(f *File) (*domain.ScheduleRequest, error) {
	start, err := time.Parse("2006-01-02", f.StartDate)
	if err != nil {
		return nil, errs.ConfigError("invalid startDate %q: %v", f.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", f.EndDate)
	if err != nil {
		return nil, errs.ConfigError("invalid endDate %q: %v", f.EndDate, err)
	}

	classes := make([]domain.Class, len(f.Classes))
	for i, cf := range f.Classes {
		required, err := flattenRequiredPeriods(cf.RequiredPeriods, start, end)
		if err != nil {
			return nil, errs.ConfigError("class %q: %v", cf.ID, err)
		}
		classes[i] = domain.Class{
			ID:               cf.ID,
			Grade:            cf.Grade,
			Conflicts:        toSlots(cf.Conflicts),
			RequiredPeriods:  required,
			PreferredPeriods: toWeightedSlots(cf.PreferredPeriods),
			AvoidPeriods:     toWeightedSlots(cf.AvoidPeriods),
		}
	}

	availability := make([]domain.InstructorAvailability, len(f.InstructorAvailability))
	for i, af := range f.InstructorAvailability {
		date, err := time.Parse("2006-01-02", af.Date)
		if err != nil {
			return nil, errs.ConfigError("instructorAvailability[%d]: invalid date %q: %v", i, af.Date, err)
		}
		availability[i] = domain.InstructorAvailability{Date: date, Unavailable: toSlots(af.Unavailable)}
	}

	return &domain.ScheduleRequest{
		Classes:                classes,
		InstructorAvailability: availability,
		StartDate:              start,
		EndDate:                end,
		Constraints: domain.SchedulingConstraints{
			MaxClassesPerDay:  f.Constraints.MaxClassesPerDay,
			MaxClassesPerWeek: f.Constraints.MaxClassesPerWeek,
			MinClassesPerWeek: f.Constraints.MinClassesPerWeek,
			MaxConsecutive:    f.Constraints.MaxConsecutive,
			ConsecutiveRule:   domain.ConsecutiveRule(f.Constraints.ConsecutiveRule),
		},
		Weights: domain.WeightConfig{
			FinalWeekCompression: *f.Weights.FinalWeekCompression,
			DayUsage:             *f.Weights.DayUsage,
			DailyBalance:         *f.Weights.DailyBalance,
			PreferredPeriods:     *f.Weights.PreferredPeriods,
			Distribution:         *f.Weights.Distribution,
			AvoidPeriods:         *f.Weights.AvoidPeriods,
			EarlierDates:         *f.Weights.EarlierDates,
		},
	}, nil
}

// flattenRequiredPeriods expands weekly (day_of_week, period) patterns
// into every concrete date in [start,end] matching that weekday, and
// passes concrete-date entries through unchanged, per spec §6's request
// shape ("required_periods":[{date,period}|{day_of_week,period}]).
func flattenRequiredPeriods(patterns []requiredPeriodPattern, start, end time.Time) ([]domain.RequiredPeriod, error) {
	var out []domain.RequiredPeriod
	for _, p := range patterns {
		if p.Date != "" {
			date, err := time.Parse("2006-01-02", p.Date)
			if err != nil {
				return nil, fmt.Errorf("invalid required_period date %q: %w", p.Date, err)
			}
			out = append(out, domain.RequiredPeriod{Date: date, Period: p.Period})
			continue
		}
		if p.DayOfWeek < 1 || p.DayOfWeek > 5 {
			return nil, fmt.Errorf("required_period has neither a date nor a valid dayOfWeek")
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if int(d.Weekday()) == p.DayOfWeek {
				out = append(out, domain.RequiredPeriod{Date: d, Period: p.Period})
			}
		}
	}
	return out, nil
}

func toSlots(patterns []slotPattern) []domain.TimeSlot {
	if len(patterns) == 0 {
		return nil
	}
	slots := make([]domain.TimeSlot, len(patterns))
	for i, p := range patterns {
		slots[i] = domain.TimeSlot{DayOfWeek: p.DayOfWeek, Period: p.Period}
	}
	return slots
}

func toWeightedSlots(patterns []slotPattern) []domain.WeightedSlot {
	if len(patterns) == 0 {
		return nil
	}
	slots := make([]domain.WeightedSlot, len(patterns))
	for i, p := range patterns {
		slots[i] = domain.WeightedSlot{Slot: domain.TimeSlot{DayOfWeek: p.DayOfWeek, Period: p.Period}, Weight: p.Weight}
	}
	return slots
}

func toDriverConfig(f *File) driver.Config {
	seed := uint64(0)
	if f.Solver.Seed != nil {
		seed = *f.Solver.Seed
	}
	return driver.Config{
		Strategy:  driver.Strategy(f.Solver.Strategy),
		TimeLimit: time.Duration(f.Solver.TimeLimitSeconds) * time.Second,
		Seed:      seed,
		Genetic: driver.GeneticConfig{
			PopulationSize: f.Solver.Genetic.PopulationSize,
			EliteSize:      f.Solver.Genetic.EliteSize,
			MutationRate:   f.Solver.Genetic.MutationRate,
			CrossoverRate:  f.Solver.Genetic.CrossoverRate,
			MaxGenerations: f.Solver.Genetic.MaxGenerations,
			Adaptive:       f.Solver.Genetic.Adaptive,
			Parallel:       f.Solver.Genetic.Parallel,
		},
		MaxRelaxationLevel: f.Solver.MaxRelaxationLevel,
		OTELEndpoint:       f.Solver.OTELEndpoint,
	}
}
