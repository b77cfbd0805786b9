package icerays

import (
	"errors"
	"fmt"
)

var (
	ErrConfig            = errors.New("invalid configuration")
	ErrNotBracketed      = errors.New("root is not bracketed")
	ErrNoConvergence     = errors.New("root search failed to converge")
	ErrIdentityExhausted = errors.New("ray identity block exhausted")
	ErrPrecondition      = errors.New("precondition violated")
)

// NotBracketedError reports the bounds and both function values of a failed line search.
type NotBracketedError struct {
	A, B   Real
	FA, FB Real
}

func (e *NotBracketedError) Error() string {
	return fmt.Sprintf("root is not bracketed in line search: [a0, b0] = [%g, %g], f(a0) = %g, f(b0) = %g",
		e.A, e.B, e.FA, e.FB)
}

func (e *NotBracketedError) Is(target error) bool { return target == ErrNotBracketed }

// BlockExhaustedError is returned when a worker spawns more rays than its block holds.
type BlockExhaustedError struct {
	Process, Context int
	Base, Capacity   uint64
}

func (e *BlockExhaustedError) Error() string {
	return fmt.Sprintf("identity block of context %d on process %d exhausted: base=%d capacity=%d",
		e.Context, e.Process, e.Base, e.Capacity)
}

func (e *BlockExhaustedError) Is(target error) bool { return target == ErrIdentityExhausted }

// PreconditionError is raised (as a panic value) when a collaborator contract is broken,
// e.g. a field is sampled outside the element it was bound to.
type PreconditionError struct {
	What string
}

func (e *PreconditionError) Error() string { return "precondition violated: " + e.What }

func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
