package validation

import (
	"fmt"
	"slices"

	"github.com/vk/calcgrid/internal/value"
)

// Lookup resolves the current value of a sibling variable by name.
type Lookup interface {
	Lookup(name string) (value.Value, bool)
}

// PassFn reports whether own (and, for cross-variable checks, the values
// reachable through others) satisfies the validator.
type PassFn func(own value.Value, others Lookup) bool

// Validator is a named predicate paired with the level and message reported
// when it fails.
type Validator struct {
	Name    string
	Level   Level
	Message string
	// Reads lists the sibling variables the predicate consults.
	Reads []string
	Pass  PassFn
}

// New creates a validator that reads only its owner's value.
func New(name string, level Level, message string, pass PassFn) Validator {
	return Validator{Name: name, Level: level, Message: message, Pass: pass}
}

// Reading returns a copy of v that declares reads of the named siblings.
func (v Validator) Reading(names ...string) Validator {
	v.Reads = append(slices.Clone(v.Reads), names...)
	return v
}

// Check runs the predicate. A nil predicate always passes.
func (v Validator) Check(own value.Value, others Lookup) Result {
	if v.Pass == nil || v.Pass(own, others) {
		return OK
	}
	return Result{Level: v.Level, Message: v.Message}
}

// Run checks every validator in order and returns the worst result.
func Run(validators []Validator, own value.Value, others Lookup) Result {
	worst := OK
	for _, v := range validators {
		if r := v.Check(own, others); r.Level > worst.Level {
			worst = r
		}
	}
	return worst
}

// IsNumber fails when the value is not a number (NaN or text).
func IsNumber(level Level) Validator {
	return New("is_number", level, "Value must be a number.", func(own value.Value, _ Lookup) bool {
		return own.IsNumber()
	})
}

// IsGreaterThanZero fails for values <= 0. Zero itself fails.
func IsGreaterThanZero(level Level) Validator {
	return New("is_greater_than_zero", level, "Value must be greater than zero.", func(own value.Value, _ Lookup) bool {
		return own.Float() > 0
	})
}

// IsAtLeast fails for values below threshold.
func IsAtLeast(threshold float64, level Level, message string) Validator {
	if message == "" {
		message = fmt.Sprintf("Value must be at least %g.", threshold)
	}
	return New("is_at_least", level, message, func(own value.Value, _ Lookup) bool {
		return !own.IsNumber() || own.Float() >= threshold
	})
}

// IsAtMost fails for values above threshold.
func IsAtMost(threshold float64, level Level, message string) Validator {
	if message == "" {
		message = fmt.Sprintf("Value must be at most %g.", threshold)
	}
	return New("is_at_most", level, message, func(own value.Value, _ Lookup) bool {
		return !own.IsNumber() || own.Float() <= threshold
	})
}

// IsLessThan fails unless the owner is strictly less than the named sibling.
// Operands that are not numbers pass; IsNumber reports those.
func IsLessThan(other string, level Level) Validator {
	return compare("is_less_than", other, level, fmt.Sprintf("Value must be less than %s.", other), func(a, b float64) bool {
		return a < b
	})
}

// IsGreaterThan fails unless the owner is strictly greater than the named
// sibling.
func IsGreaterThan(other string, level Level) Validator {
	return compare("is_greater_than", other, level, fmt.Sprintf("Value must be greater than %s.", other), func(a, b float64) bool {
		return a > b
	})
}

func compare(name, other string, level Level, message string, ok func(a, b float64) bool) Validator {
	return New(name, level, message, func(own value.Value, others Lookup) bool {
		ov, found := others.Lookup(other)
		if !found || !own.IsNumber() || !ov.IsNumber() {
			return true
		}
		return ok(own.Float(), ov.Float())
	}).Reading(other)
}

// IsOneOf fails unless the owner's text is one of options.
func IsOneOf(options []string, level Level) Validator {
	opts := slices.Clone(options)
	return New("is_one_of", level, fmt.Sprintf("Value must be one of %v.", opts), func(own value.Value, _ Lookup) bool {
		return slices.Contains(opts, own.Str())
	})
}
