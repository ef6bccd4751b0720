package cp

import (
	"context"
	"sort"
	"time"

	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"github.com/danfeder/classroom-scheduler/internal/telemetry"
)

// Status mirrors the exit conditions the unified driver reports.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusIncumbent  Status = "incumbent"
	StatusTimeout    Status = "timeout"
	StatusInfeasible Status = "infeasible"
	StatusCancelled  Status = "cancelled"
)

// Result is what Solve returns: the best assignment set found (which
// may be partial, if nothing feasible completed before the deadline),
// its objective score, and the status explaining why search stopped.
type Result struct {
	Assignments []domain.Assignment
	Status      Status
	Score       float64
	Explored    int
}

// Options configures one Solve call.
type Options struct {
	TimeLimit time.Duration
	Metrics   *telemetry.Metrics
	RunID     string
}

// solverState carries the mutable search state threaded through the
// recursive backtracking so Solve itself stays a thin setup/teardown
// wrapper, mirroring the teacher's pattern of a stateless entry point
// around a stateful inner loop.
type solverState struct {
	model    *Model
	registry *constraints.Registry
	req      *domain.ScheduleRequest
	deadline time.Time

	order []string // class IDs, most-constrained-first

	currentAssignment map[string]domain.Assignment
	perDateCount       map[int64]int
	perWeekCount        map[int]int
	slotOwner           map[[2]int]string // (dateIdx, period) -> classID

	best      []domain.Assignment
	bestScore float64
	hasBest   bool

	explored  int
	timedOut  bool
}

// Solve runs branch-and-bound search over model, respecting
// opts.TimeLimit. ctx cancellation is checked between class
// assignments and reported as StatusCancelled.
func Solve(ctx context.Context, req *domain.ScheduleRequest, registry *constraints.Registry, opts Options) Result {
	logger := telemetry.LoggerFor(ctx, "cp")
	ctx, span := telemetry.StartSpan(ctx, "cp.Solve")
	defer span.End()

	model := Build(req, registry)

	st := &solverState{
		model:             model,
		registry:          registry,
		req:               req,
		currentAssignment: make(map[string]domain.Assignment, len(model.classIDs)),
		perDateCount:      make(map[int64]int),
		perWeekCount:      make(map[int]int),
		slotOwner:         make(map[[2]int]string),
	}
	if opts.TimeLimit > 0 {
		st.deadline = time.Now().Add(opts.TimeLimit)
	}
	st.order = orderByConstrainedness(model)

	start := time.Now()
	cancelled := st.search(ctx, 0)
	elapsed := time.Since(start)
	logger.V(1).Info("cp search finished", "explored", st.explored, "duration", elapsed, "hasBest", st.hasBest)

	var result Result
	switch {
	case cancelled:
		result = Result{Assignments: st.best, Status: StatusCancelled, Score: st.bestScore, Explored: st.explored}
	case st.hasBest && st.timedOut:
		result = Result{Assignments: st.best, Status: StatusTimeout, Score: st.bestScore, Explored: st.explored}
	case st.hasBest:
		result = Result{Assignments: st.best, Status: StatusOptimal, Score: st.bestScore, Explored: st.explored}
	case st.timedOut:
		result = Result{Status: StatusTimeout, Explored: st.explored}
	default:
		result = Result{Status: StatusInfeasible, Explored: st.explored}
	}

	if opts.Metrics != nil {
		opts.Metrics.CPSolveDuration.WithLabelValues(opts.RunID).Observe(elapsed.Seconds())
		opts.Metrics.CPSolveOutcome.WithLabelValues(string(result.Status)).Inc()
	}
	return result
}

// orderByConstrainedness sorts class IDs by ascending count of legal
// (dateIdx, period) slots, the classic most-constrained-variable
// heuristic: classes with fewer options get assigned first so
// infeasibility is discovered as early as possible in the tree.
func orderByConstrainedness(m *Model) []string {
	type count struct {
		id string
		n  int
	}
	counts := make([]count, 0, len(m.classIDs))
	for _, id := range m.classIDs {
		n := 0
		for dateIdx := range m.dates {
			for p := 1; p <= domain.MaxPeriod; p++ {
				if m.Feasible(id, dateIdx, p) {
					n++
				}
			}
		}
		counts = append(counts, count{id, n})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].n < counts[j].n })
	ids := make([]string, len(counts))
	for i, c := range counts {
		ids[i] = c.id
	}
	return ids
}

// search assigns st.order[depth:] recursively. Returns true if the
// caller should unwind immediately because ctx was cancelled.
func (st *solverState) search(ctx context.Context, depth int) bool {
	if !st.deadline.IsZero() && time.Now().After(st.deadline) {
		st.timedOut = true
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
	}

	if depth == len(st.order) {
		st.explored++
		st.recordIfBetter()
		return false
	}

	classID := st.order[depth]
	class := st.req.Classes[classIndex(st.req, classID)]
	maxPerDay := st.req.Constraints.MaxClassesPerDay

	for dateIdx, day := range st.model.dates {
		if maxPerDay > 0 && st.perDateCount[day] >= maxPerDay {
			continue
		}
		for period := 1; period <= domain.MaxPeriod; period++ {
			if !st.model.Feasible(classID, dateIdx, period) {
				continue
			}
			slotKey := [2]int{dateIdx, period}
			if _, taken := st.slotOwner[slotKey]; taken {
				continue
			}

			st.place(classID, class, dateIdx, period, day, slotKey)
			cancelled := st.search(ctx, depth+1)
			st.unplace(classID, dateIdx, period, day, slotKey)
			if cancelled || st.timedOut {
				return cancelled
			}
		}
	}
	return false
}

func (st *solverState) place(classID string, class domain.Class, dateIdx, period int, day int64, slotKey [2]int) {
	date := st.model.DateAt(dateIdx)
	st.currentAssignment[classID] = domain.Assignment{
		ClassID:  classID,
		Date:     date,
		TimeSlot: domain.TimeSlot{DayOfWeek: int(date.Weekday()), Period: period},
	}
	st.perDateCount[day]++
	year, week := date.ISOWeek()
	st.perWeekCount[year*100+week]++
	st.slotOwner[slotKey] = classID
}

func (st *solverState) unplace(classID string, dateIdx, period int, day int64, slotKey [2]int) {
	date := st.model.DateAt(dateIdx)
	delete(st.currentAssignment, classID)
	st.perDateCount[day]--
	year, week := date.ISOWeek()
	st.perWeekCount[year*100+week]--
	delete(st.slotOwner, slotKey)
}

// recordIfBetter scores the now-complete currentAssignment and keeps
// it as the incumbent if it's feasible under the weekly bounds and
// scores higher than the current best.
func (st *solverState) recordIfBetter() {
	assignments := make([]domain.Assignment, 0, len(st.currentAssignment))
	for _, a := range st.currentAssignment {
		assignments = append(assignments, a)
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ClassID < assignments[j].ClassID })

	ctx := constraints.NewContext(st.req)
	hard := st.registry.HardViolationCount(assignments, ctx)
	if hard > 0 {
		return
	}

	score := 0.0
	for _, a := range assignments {
		dateIdx := indexOfDate(st.model, a.Date)
		score += st.model.SoftWeight(a.ClassID, dateIdx, a.TimeSlot.Period)
	}

	if !st.hasBest || score > st.bestScore {
		st.best = assignments
		st.bestScore = score
		st.hasBest = true
	}
}

func classIndex(req *domain.ScheduleRequest, id string) int {
	for i, c := range req.Classes {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func indexOfDate(m *Model, date time.Time) int {
	day := date.Unix() / 86400
	for i, d := range m.dates {
		if d == day {
			return i
		}
	}
	return -1
}
