package engine

import (
	"errors"
	"fmt"

	"github.com/speakeasy-api/symcore"
)

// ErrorKind classifies evaluation conditions.
type ErrorKind int

const (
	RecursionLimitExceeded ErrorKind = iota + 1
	IterationLimitExceeded
	Cancelled
	MalformedScopeSpecifier
)

func (k ErrorKind) String() string {
	switch k {
	case RecursionLimitExceeded:
		return "RecursionLimitExceeded"
	case IterationLimitExceeded:
		return "IterationLimitExceeded"
	case Cancelled:
		return "Cancelled"
	case MalformedScopeSpecifier:
		return "MalformedScopeSpecifier"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var (
	ErrRecursionLimit = errors.New("recursion limit exceeded")
	ErrIterationLimit = errors.New("iteration limit exceeded")
	ErrCancelled      = errors.New("evaluation cancelled")
	ErrMalformedScope = errors.New("malformed scope specifier")
	// ErrEngineBusy is returned when an engine is entered while another
	// top-level evaluation is running on it.
	ErrEngineBusy = errors.New("engine is already evaluating")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case RecursionLimitExceeded:
		return ErrRecursionLimit
	case IterationLimitExceeded:
		return ErrIterationLimit
	case Cancelled:
		return ErrCancelled
	case MalformedScopeSpecifier:
		return ErrMalformedScope
	}
	return nil
}

// EvalError carries the kind of a failed evaluation and where it happened.
type EvalError struct {
	Kind  ErrorKind
	Expr  symcore.Expr // Expression being evaluated, if known
	Limit int          // Configured bound for limit errors
	Err   error        // Underlying cause, e.g. context.DeadlineExceeded
}

func (e *EvalError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Limit > 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.Limit)
	}
	if e.Expr != nil {
		msg = fmt.Sprintf("%s in %s", msg, preview(e.Expr, 80))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is matches the sentinel of the error kind.
func (e *EvalError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *EvalError) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or 0 when err is not an evaluation error.
func KindOf(err error) ErrorKind {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	switch {
	case errors.Is(err, ErrRecursionLimit):
		return RecursionLimitExceeded
	case errors.Is(err, ErrCancelled):
		return Cancelled
	case errors.Is(err, ErrMalformedScope):
		return MalformedScopeSpecifier
	}
	return 0
}

// IsTerminal reports whether err aborts the whole top-level evaluation
// rather than just the current candidate rule.
func IsTerminal(err error) bool {
	switch KindOf(err) {
	case RecursionLimitExceeded, Cancelled:
		return true
	}
	return errors.Is(err, ErrEngineBusy)
}
