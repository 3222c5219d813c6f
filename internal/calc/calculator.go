package calc

import (
	"fmt"
	"slices"

	"github.com/vk/calcgrid/internal/dag"
	"github.com/vk/calcgrid/internal/validation"
	"github.com/vk/calcgrid/internal/value"
)

// Calculator owns an ordered collection of variables and the graphs linking
// them.
type Calculator struct {
	name string

	vars   []*Variable
	byName map[string]VarID

	groups      []*Group
	groupByName map[string]*Group

	// equations holds an edge d -> v for every variable d that v's equation
	// reads, across all roles.
	equations *dag.Graph

	observers []Observer
	built     bool
}

// New creates an empty calculator.
func New(name string) *Calculator {
	return &Calculator{
		name:        name,
		byName:      make(map[string]VarID),
		groupByName: make(map[string]*Group),
	}
}

// Name returns the calculator name.
func (c *Calculator) Name() string { return c.name }

// Built reports whether Build has completed.
func (c *Calculator) Built() bool { return c.built }

// AddVariable appends a variable. Variables must be added before Build.
func (c *Calculator) AddVariable(cfg VariableConfig) (*Variable, error) {
	if c.built {
		return nil, fmt.Errorf("adding variable %q: %w", cfg.Name, ErrAlreadyBuilt)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("calculator %q: variable name cannot be empty", c.name)
	}
	if _, exists := c.byName[cfg.Name]; exists {
		return nil, fmt.Errorf("calculator %q: duplicate variable %q", c.name, cfg.Name)
	}
	if err := cfg.Units.Validate(); err != nil {
		return nil, fmt.Errorf("variable %q: %w", cfg.Name, err)
	}
	if cfg.Default != nil {
		d := coerce(cfg.Kind, *cfg.Default)
		cfg.Default = &d
	}

	id := VarID(len(c.vars))
	v := newVariable(id, cfg)
	v.onRead = c.notifyRead
	c.vars = append(c.vars, v)
	c.byName[cfg.Name] = id
	return v, nil
}

// AddGroup declares an equation group. output names the member selected as
// Output initially. Members are resolved at Build.
func (c *Calculator) AddGroup(name, output string, members ...string) (*Group, error) {
	if c.built {
		return nil, fmt.Errorf("adding group %q: %w", name, ErrAlreadyBuilt)
	}
	if _, exists := c.groupByName[name]; exists {
		return nil, fmt.Errorf("calculator %q: duplicate group %q", c.name, name)
	}
	if len(members) < 2 {
		return nil, fmt.Errorf("calculator %q: group %q needs at least two members", c.name, name)
	}
	g := &Group{name: name, members: slices.Clone(members)}
	if err := g.selectMember(output); err != nil {
		return nil, err
	}
	c.groups = append(c.groups, g)
	c.groupByName[name] = g
	return g, nil
}

// Subscribe registers an observer for outbound notifications.
func (c *Calculator) Subscribe(o Observer) {
	c.observers = append(c.observers, o)
}

// Variables returns the variables in declaration order.
func (c *Calculator) Variables() []*Variable {
	return slices.Clone(c.vars)
}

// Variable looks a variable up by name.
func (c *Calculator) Variable(name string) (*Variable, bool) {
	id, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.vars[id], true
}

// Groups returns the declared groups in declaration order.
func (c *Calculator) Groups() []*Group {
	return slices.Clone(c.groups)
}

// Group looks a group up by name.
func (c *Calculator) Group(name string) (*Group, bool) {
	g, ok := c.groupByName[name]
	return g, ok
}

// Worst returns the most severe validation result across all variables.
func (c *Calculator) Worst() validation.Result {
	results := make([]validation.Result, len(c.vars))
	for i, v := range c.vars {
		results[i] = v.worst
	}
	return validation.Worst(results...)
}

func (c *Calculator) lookupVar(name string) (*Variable, error) {
	v, ok := c.Variable(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q in calculator %q", ErrUnknownVariable, name, c.name)
	}
	return v, nil
}

// Lookup implements validation.Lookup over raw values.
func (c *Calculator) Lookup(name string) (value.Value, bool) {
	v, ok := c.Variable(name)
	if !ok {
		return value.Value{}, false
	}
	return v.raw, true
}

func (c *Calculator) notifyRead(v *Variable) {
	for _, o := range c.observers {
		if ro, ok := o.(ReadObserver); ok {
			ro.ValueRead(c.name, v.name)
		}
	}
}

func (c *Calculator) emitValue(v *Variable) {
	if v.disableUpdate {
		return
	}
	ev := ValueEvent{
		Calculator: c.name,
		Variable:   v.name,
		Value:      v.raw,
		Formatted:  v.Formatted(),
		Unit:       v.unitName(),
	}
	for _, o := range c.observers {
		o.ValueChanged(ev)
	}
}

func (c *Calculator) emitValidation(v *Variable) {
	if v.disableUpdate {
		return
	}
	ev := ValidationEvent{Calculator: c.name, Variable: v.name, Result: v.worst}
	for _, o := range c.observers {
		o.ValidationChanged(ev)
	}
}

func (c *Calculator) emitDirection(v *Variable) {
	if v.disableUpdate {
		return
	}
	ev := DirectionEvent{Calculator: c.name, Variable: v.name, Direction: v.direction}
	for _, o := range c.observers {
		o.DirectionChanged(ev)
	}
}

// coerce converts v to the kind a variable holds.
func coerce(kind value.Kind, v value.Value) value.Value {
	if v.Kind() == kind {
		return v
	}
	if kind == value.KindText {
		return value.Text(v.Str())
	}
	return value.Parse(value.KindNumber, v.Str())
}
