// Package errs defines the error-kind hierarchy solver components use to
// signal configuration problems, infeasibility, timeouts, cancellation and
// internal invariant failures.
package errs

import "fmt"

// Kind classifies an error so callers can decide whether it is fatal or a
// best-effort result.
type Kind string

const (
	KindConfig   Kind = "ConfigError"
	KindInfeasible Kind = "Infeasible"
	KindTimeout  Kind = "Timeout"
	KindCancelled Kind = "Cancelled"
	KindWorker   Kind = "WorkerError"
	KindInternal Kind = "InternalError"
)

// SchedulerError is the common error type returned by every solver
// component. ConfigError and InternalError propagate to the caller;
// Infeasible, Timeout and Cancelled are meant to be carried in
// metadata.status alongside a best-effort result rather than raised.
type SchedulerError struct {
	Kind    Kind
	Message string
	Context map[string]any
}

func (e *SchedulerError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Context)
}

func newErr(kind Kind, format string, args ...any) *SchedulerError {
	return &SchedulerError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ConfigError rejects a request or configuration before any solve is
// attempted: invalid weights, incompatible constraints, empty classes,
// min_per_week > max_per_week.
func ConfigError(format string, args ...any) *SchedulerError {
	return newErr(KindConfig, format, args...)
}

// Infeasible reports that the CP solver proved no solution exists, or
// that the GA finished with unresolved hard-constraint violations and no
// CP fallback was available.
func Infeasible(format string, args ...any) *SchedulerError {
	return newErr(KindInfeasible, format, args...)
}

// Timeout reports that a wall-clock limit elapsed. Callers should check
// for an incumbent before treating this as Infeasible.
func Timeout(format string, args ...any) *SchedulerError {
	return newErr(KindTimeout, format, args...)
}

// Cancelled reports that a cancellation token fired mid-solve.
func Cancelled(format string, args ...any) *SchedulerError {
	return newErr(KindCancelled, format, args...)
}

// WorkerError reports that fitness evaluation failed inside a worker.
// pkg/ga's Evaluator does not construct it: after a worker panic it
// finishes the remaining chromosomes sequentially, and it does not mark
// any chromosome unfit or recover a panic in that sequential pass.
func WorkerError(format string, args ...any) *SchedulerError {
	return newErr(KindWorker, format, args...)
}

// InternalError reports an unreachable invariant being breached. These
// are bugs, not input problems, and are never expected to be recovered
// from by a caller.
func InternalError(format string, args ...any) *SchedulerError {
	return newErr(KindInternal, format, args...)
}

// Is reports whether err is a SchedulerError of the given kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*SchedulerError)
	return ok && se.Kind == kind
}

// WithContext attaches diagnostic context and returns the same error for
// chaining at the call site.
func (e *SchedulerError) WithContext(key string, value any) *SchedulerError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
