package calc

import (
	"slices"

	"github.com/vk/calcgrid/internal/units"
	"github.com/vk/calcgrid/internal/validation"
	"github.com/vk/calcgrid/internal/value"
)

// VarID is the stable index of a variable in its calculator's arena.
type VarID int

// Inputs gives an equation access to the variables it declared in Reads.
type Inputs interface {
	// Value returns the raw value of a declared read.
	Value(name string) value.Value
	// Float is shorthand for Value(name).Float().
	Float(name string) float64
}

// EquationFn computes a variable's raw value from its declared reads.
type EquationFn func(in Inputs) (value.Value, error)

// Equation pairs an EquationFn with the variables it reads. Reads is the
// static declaration the dependency graph is built from.
type Equation struct {
	Reads []string
	Fn    EquationFn
}

// VariableConfig declares a variable.
type VariableConfig struct {
	Name string
	Kind value.Kind
	// Default is the initial raw value. Nil means NaN for numbers, the first
	// option for choice variables and "" for other text.
	Default *value.Value
	Units   units.Set
	// Round is the number of significant digits used for display.
	Round       int
	Engineering bool
	Help        string
	// Options makes a text variable a choice between fixed values.
	Options  []string
	Equation *Equation
	// Direction overrides the direction source. Group members left nil are
	// driven by their group; other variables left nil are always Inputs.
	Direction  DirectionFn
	Validators []validation.Validator
	// Hidden marks a variable that UIs should not render.
	Hidden bool
}

// Variable is one quantity of a calculator.
type Variable struct {
	id   VarID
	name string
	kind value.Kind
	raw  value.Value

	units       units.Set
	unit        int
	round       int
	engineering bool
	help        string
	options     []string
	hidden      bool

	equation    *Equation
	direction   Direction
	directionFn DirectionFn
	group       string

	dependencies         []VarID
	dependants           []VarID
	validators           []validation.Validator
	validationReads      []VarID
	validationDependants []VarID
	worst                validation.Result

	disableUpdate bool
	onRead        func(*Variable)
}

func newVariable(id VarID, cfg VariableConfig) *Variable {
	v := &Variable{
		id:          id,
		name:        cfg.Name,
		kind:        cfg.Kind,
		units:       slices.Clone(cfg.Units),
		unit:        cfg.Units.Default(),
		round:       cfg.Round,
		engineering: cfg.Engineering,
		help:        cfg.Help,
		options:     slices.Clone(cfg.Options),
		hidden:      cfg.Hidden,
		equation:    cfg.Equation,
		directionFn: cfg.Direction,
		validators:  slices.Clone(cfg.Validators),
		worst:       validation.OK,
	}
	switch {
	case cfg.Default != nil:
		v.raw = *cfg.Default
	case cfg.Kind == value.KindText && len(cfg.Options) > 0:
		v.raw = value.Text(cfg.Options[0])
	case cfg.Kind == value.KindText:
		v.raw = value.Text("")
	default:
		v.raw = value.NaN()
	}
	return v
}

// ID returns the arena index.
func (v *Variable) ID() VarID { return v.id }

// Name returns the variable name.
func (v *Variable) Name() string { return v.name }

// Kind returns the kind of raw value held.
func (v *Variable) Kind() value.Kind { return v.kind }

// Value returns the raw value and notifies read observers.
func (v *Variable) Value() value.Value {
	if v.onRead != nil {
		v.onRead(v)
	}
	return v.raw
}

// Float returns the raw value as a float64.
func (v *Variable) Float() float64 { return v.Value().Float() }

// Direction returns the direction assigned by the last refresh.
func (v *Variable) Direction() Direction { return v.direction }

// Group returns the name of the group the variable belongs to, if any.
func (v *Variable) Group() string { return v.group }

// HasEquation reports whether an equation is bound.
func (v *Variable) HasEquation() bool { return v.equation != nil && v.equation.Fn != nil }

// Dependencies returns the variables this variable's equation reads.
func (v *Variable) Dependencies() []VarID { return slices.Clone(v.dependencies) }

// Dependants returns the variables whose equations read this variable.
func (v *Variable) Dependants() []VarID { return slices.Clone(v.dependants) }

// ValidationDependants returns the variables whose validators read this one.
func (v *Variable) ValidationDependants() []VarID { return slices.Clone(v.validationDependants) }

// Worst returns the worst validation result of the last validation.
func (v *Variable) Worst() validation.Result { return v.worst }

// Units returns the display units.
func (v *Variable) Units() units.Set { return slices.Clone(v.units) }

// Unit returns the selected display unit, or nil for unit-less variables.
func (v *Variable) Unit() *units.Unit {
	if v.unit < 0 || v.unit >= len(v.units) {
		return nil
	}
	u := v.units[v.unit]
	return &u
}

// Round returns the number of significant digits used for display.
func (v *Variable) Round() int { return v.round }

// Help returns the help text.
func (v *Variable) Help() string { return v.help }

// Options returns the allowed values of a choice variable.
func (v *Variable) Options() []string { return slices.Clone(v.options) }

// Hidden reports whether UIs should skip the variable.
func (v *Variable) Hidden() bool { return v.hidden }

// UpdatesDisabled reports whether notifications are suppressed.
func (v *Variable) UpdatesDisabled() bool { return v.disableUpdate }

// SetDisableUpdate suppresses (true) or re-enables (false) notifications for
// this variable.
func (v *Variable) SetDisableUpdate(disabled bool) { v.disableUpdate = disabled }

// Formatted renders the raw value in the active unit.
func (v *Variable) Formatted() string {
	if v.kind == value.KindText {
		return v.raw.Str()
	}
	return units.Display(v.raw.Float(), v.Unit(), v.round, v.engineering)
}

func (v *Variable) unitName() string {
	if u := v.Unit(); u != nil {
		return u.Name
	}
	return ""
}
