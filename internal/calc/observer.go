package calc

import (
	"github.com/vk/calcgrid/internal/validation"
	"github.com/vk/calcgrid/internal/value"
)

// ValueEvent is raised when a variable's raw value, or its display unit,
// changes.
type ValueEvent struct {
	Calculator string
	Variable   string
	Value      value.Value
	// Formatted is the value rendered in the active unit, rounded to the
	// variable's significant digits.
	Formatted string
	Unit      string
}

// ValidationEvent is raised when a variable's worst validation result
// changes.
type ValidationEvent struct {
	Calculator string
	Variable   string
	Result     validation.Result
}

// DirectionEvent is raised when a variable's direction changes.
type DirectionEvent struct {
	Calculator string
	Variable   string
	Direction  Direction
}

// Observer consumes outbound notifications. Implementations must not call
// back into the calculator that raised the event.
type Observer interface {
	ValueChanged(ValueEvent)
	ValidationChanged(ValidationEvent)
	DirectionChanged(DirectionEvent)
}

// ReadObserver is optionally implemented by observers that want to know
// when a raw value is read.
type ReadObserver interface {
	ValueRead(calculator, variable string)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnValue      func(ValueEvent)
	OnValidation func(ValidationEvent)
	OnDirection  func(DirectionEvent)
}

func (f ObserverFuncs) ValueChanged(e ValueEvent) {
	if f.OnValue != nil {
		f.OnValue(e)
	}
}

func (f ObserverFuncs) ValidationChanged(e ValidationEvent) {
	if f.OnValidation != nil {
		f.OnValidation(e)
	}
}

func (f ObserverFuncs) DirectionChanged(e DirectionEvent) {
	if f.OnDirection != nil {
		f.OnDirection(e)
	}
}
