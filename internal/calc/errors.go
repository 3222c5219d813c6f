package calc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidMutation is returned when a caller sets the value of an Output.
	ErrInvalidMutation = errors.New("calc: cannot set the value of an output variable")

	// ErrMissingEquation is logged when an Output without an equation is
	// calculated. It is never returned.
	ErrMissingEquation = errors.New("calc: variable has no equation")

	// ErrNonConvergence is matched by *NonConvergenceError.
	ErrNonConvergence = errors.New("calc: outputs do not converge")

	// ErrUnknownVariable is returned for references to undeclared variables.
	ErrUnknownVariable = errors.New("calc: unknown variable")

	// ErrUnknownGroup is returned for references to undeclared groups.
	ErrUnknownGroup = errors.New("calc: unknown group")

	// ErrUndeclaredRead is returned when an equation reads a variable it did
	// not list in Equation.Reads.
	ErrUndeclaredRead = errors.New("calc: equation read an undeclared variable")

	// ErrDirectionConflict is returned when a group does not have exactly
	// one Output.
	ErrDirectionConflict = errors.New("calc: group must have exactly one output")

	// ErrNotBuilt is returned by operations that need a built calculator.
	ErrNotBuilt = errors.New("calc: calculator has not been built")

	// ErrAlreadyBuilt is returned when a built calculator is modified
	// structurally.
	ErrAlreadyBuilt = errors.New("calc: calculator is already built")
)

// NonConvergenceError reports a cycle among Output variables under the
// current direction assignment.
type NonConvergenceError struct {
	Calculator string
	// Variables lists the cycle in dependency order.
	Variables []string
	// Groups lists the declared groups the cycle passes through.
	Groups []string
}

func (e *NonConvergenceError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "calculator %q: outputs do not converge: cycle through %s", e.Calculator, strings.Join(e.Variables, " -> "))
	if len(e.Groups) > 0 {
		fmt.Fprintf(&sb, " (groups: %s)", strings.Join(e.Groups, ", "))
	}
	return sb.String()
}

// Is lets errors.Is match ErrNonConvergence.
func (e *NonConvergenceError) Is(target error) bool {
	return target == ErrNonConvergence
}

// GroupConflictError reports a group that does not have exactly one Output.
// A group with more than one Output also matches ErrNonConvergence.
type GroupConflictError struct {
	Group   string
	Outputs []string
}

func (e *GroupConflictError) Error() string {
	return fmt.Sprintf("%v: group %q has %d outputs %v", ErrDirectionConflict, e.Group, len(e.Outputs), e.Outputs)
}

// Is lets errors.Is match ErrDirectionConflict, and ErrNonConvergence when
// the group has several outputs.
func (e *GroupConflictError) Is(target error) bool {
	switch target {
	case ErrDirectionConflict:
		return true
	case ErrNonConvergence:
		return len(e.Outputs) > 1
	}
	return false
}
