package solver

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Solver operations.
var (
	ErrDuplicateConstraint     = errors.New("duplicate constraint")
	ErrUnsatisfiableConstraint = errors.New("unsatisfiable constraint")
	ErrUnknownConstraint       = errors.New("unknown constraint")
	ErrDuplicateEditVariable   = errors.New("duplicate edit variable")
	ErrUnknownEditVariable     = errors.New("unknown edit variable")
	ErrBadRequiredStrength     = errors.New("edit variable cannot have required strength")
)

// InternalError reports a broken tableau invariant. It is never expected
// in a correct program and callers should treat it as fatal.
type InternalError struct {
	Reason string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal solver error: %s", e.Reason)
}

// IsInternal reports whether err is or wraps an *InternalError.
func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}
