package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/calcgrid/internal/value"
)

// Model is the unified representation of every loaded calculator template.
type Model struct {
	// Calculators in load order.
	Calculators []*Calculator
}

// Calculator is the format-agnostic representation of a `calculator` block.
type Calculator struct {
	Name        string
	Title       string
	Description string
	Categories  []string
	Tags        []string
	Groups      []*Group
	Variables   []*Variable
	// Source is the file the template was read from.
	Source string
}

// Group declares an equation group and its initially selected output.
type Group struct {
	Name    string
	Members []string
	Output  string
}

// Variable is the format-agnostic representation of a `variable` block.
type Variable struct {
	Name        string
	Help        string
	Round       int
	Engineering bool
	Default     *value.Value
	// Direction is "", "input" or "output". Empty means the group decides,
	// or input outside groups.
	Direction string
	Options   []string
	Hidden    bool
	// Equation is nil when the variable has none.
	Equation   hcl.Expression
	Units      []*Unit
	Validators []*Validator
	Checks     []*Check
}

// Unit is one display unit of a variable.
type Unit struct {
	Name       string
	Multiplier float64
	Preferred  bool
}

// Validator names a predicate from the validator library.
type Validator struct {
	Name      string
	Level     string
	Message   string
	Threshold *float64
	Other     string
}

// Check is an expression validator. Condition must evaluate to true.
type Check struct {
	Level     string
	Condition hcl.Expression
	Message   string
}
