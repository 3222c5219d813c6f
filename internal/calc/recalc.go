package calc

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/dag"
	"github.com/vk/calcgrid/internal/value"
)

// BuildOption configures Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	snapshot *Snapshot
}

// WithSnapshot restores raw values and output selections from s before the
// initial recalculation.
func WithSnapshot(s Snapshot) BuildOption {
	return func(o *buildOptions) { o.snapshot = &s }
}

// Build links the dependency graph and brings the calculator to a
// consistent state: directions refreshed, outputs recalculated, every
// variable validated. Observers receive one event of each kind per variable
// once the state is consistent.
func (c *Calculator) Build(ctx context.Context, opts ...BuildOption) error {
	if c.built {
		return ErrAlreadyBuilt
	}
	ctx = ctxlog.With(ctx, "calculator", c.name)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building calculator.", "variables", len(c.vars), "groups", len(c.groups))

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := c.bindGroups(); err != nil {
		return err
	}
	if err := c.findDependenciesAndDependants(ctx); err != nil {
		return err
	}

	previous := make([]bool, len(c.vars))
	for i, v := range c.vars {
		previous[i] = v.disableUpdate
		v.disableUpdate = true
	}
	defer func() {
		for i, v := range c.vars {
			v.disableUpdate = previous[i]
		}
	}()

	if o.snapshot != nil {
		c.applySnapshot(ctx, *o.snapshot)
	}
	if err := c.refreshDirections(ctx); err != nil {
		return err
	}
	if err := c.recalculateAll(ctx); err != nil {
		return err
	}
	c.validateAll()

	for i, v := range c.vars {
		v.disableUpdate = previous[i]
	}
	c.built = true
	c.publishAll()
	logger.Debug("Calculator built.", "worst_level", c.Worst().Level.String())
	return nil
}

// RefreshDirections re-evaluates every direction function and checks that
// each group has exactly one Output.
func (c *Calculator) RefreshDirections(ctx context.Context) error {
	if !c.built {
		return ErrNotBuilt
	}
	return c.refreshDirections(ctxlog.With(ctx, "calculator", c.name))
}

func (c *Calculator) refreshDirections(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for _, v := range c.vars {
		d := v.directionFn()
		if d == v.direction {
			continue
		}
		logger.Debug("Direction changed.", "variable", v.name, "direction", d.String())
		v.direction = d
		c.emitDirection(v)
	}

	var errs []error
	for _, g := range c.groups {
		var outputs []string
		for _, name := range g.members {
			if c.vars[c.byName[name]].direction == Output {
				outputs = append(outputs, name)
			}
		}
		if len(outputs) != 1 {
			errs = append(errs, &GroupConflictError{Group: g.name, Outputs: outputs})
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("Invalid direction assignment.", "error", err)
		return err
	}
	return nil
}

// RecalculateAll recomputes every Output in dependency order.
func (c *Calculator) RecalculateAll(ctx context.Context) error {
	if !c.built {
		return ErrNotBuilt
	}
	return c.recalculateAll(ctxlog.With(ctx, "calculator", c.name))
}

func (c *Calculator) recalculateAll(ctx context.Context) error {
	order, err := c.outputOrder(ctx)
	if err != nil {
		return err
	}
	return c.recompute(ctx, order)
}

// SetValue applies an external edit to an Input, then recalculates the
// Outputs downstream of it and revalidates everything the edit can affect.
func (c *Calculator) SetValue(ctx context.Context, name string, v value.Value) error {
	if !c.built {
		return ErrNotBuilt
	}
	ctx = ctxlog.With(ctx, "calculator", c.name)
	logger := ctxlog.FromContext(ctx)

	target, err := c.lookupVar(name)
	if err != nil {
		return err
	}
	if target.direction == Output {
		err := fmt.Errorf("%w: %q in calculator %q", ErrInvalidMutation, name, c.name)
		logger.Error("Rejected edit of an output.", "variable", name, "error", err)
		return err
	}

	order, err := c.outputOrder(ctx)
	if err != nil {
		return err
	}

	next := coerce(target.kind, v)
	if !next.Equal(target.raw) {
		target.raw = next
		c.emitValue(target)
	}
	logger.Debug("Input edited.", "variable", name, "value", next.Str())
	c.validate(target)
	c.revalidateDependants(target)

	downstream := c.equations.Subgraph(func(id int) bool {
		return id == int(target.id) || c.vars[id].direction == Output
	}).Reachable(int(target.id))

	affected := slices.DeleteFunc(order, func(id VarID) bool {
		_, found := slices.BinarySearch(downstream, int(id))
		return !found
	})
	return c.recompute(ctx, affected)
}

// SelectOutput makes name the Output of group, as an exclusive toggle
// control would, then refreshes directions and recalculates.
func (c *Calculator) SelectOutput(ctx context.Context, group, name string) error {
	if !c.built {
		return ErrNotBuilt
	}
	ctx = ctxlog.With(ctx, "calculator", c.name)

	g, ok := c.groupByName[group]
	if !ok {
		return fmt.Errorf("%w: %q in calculator %q", ErrUnknownGroup, group, c.name)
	}
	if err := g.selectMember(name); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Output selected.", "group", group, "variable", name)

	if err := c.refreshDirections(ctx); err != nil {
		return err
	}
	if err := c.recalculateAll(ctx); err != nil {
		return err
	}
	c.validateAll()
	return nil
}

// SetUnit changes the display unit of a variable.
func (c *Calculator) SetUnit(name, unit string) error {
	v, err := c.lookupVar(name)
	if err != nil {
		return err
	}
	i, ok := v.units.Index(unit)
	if !ok {
		return fmt.Errorf("variable %q has no unit %q", name, unit)
	}
	if i == v.unit {
		return nil
	}
	v.unit = i
	c.emitValue(v)
	return nil
}

// outputOrder returns the current Outputs in dependency order.
func (c *Calculator) outputOrder(ctx context.Context) ([]VarID, error) {
	order, err := c.activeGraph().TopoSort()
	if err == nil {
		return toVarIDs(order), nil
	}

	var cycle *dag.CycleError
	if !errors.As(err, &cycle) {
		return nil, err
	}
	ncErr := &NonConvergenceError{Calculator: c.name}
	for _, id := range cycle.Nodes {
		v := c.vars[id]
		ncErr.Variables = append(ncErr.Variables, v.name)
		if v.group != "" && !slices.Contains(ncErr.Groups, v.group) {
			ncErr.Groups = append(ncErr.Groups, v.group)
		}
	}
	ctxlog.FromContext(ctx).Error("Recalculation aborted.", "error", ncErr)
	return nil, ncErr
}

// recompute calculates the given Outputs in order, validating each and
// revalidating the variables whose validators read it.
func (c *Calculator) recompute(ctx context.Context, order []VarID) error {
	for _, id := range order {
		v := c.vars[id]
		changed, err := c.calculate(ctx, v)
		if err != nil {
			return err
		}
		c.validate(v)
		if changed {
			c.revalidateDependants(v)
		}
	}
	return nil
}

// calculate evaluates v's equation and stores the result. A missing
// equation is logged and leaves the value unchanged. An equation error
// stores NaN so validators report it.
func (c *Calculator) calculate(ctx context.Context, v *Variable) (bool, error) {
	logger := ctxlog.FromContext(ctx)
	if !v.HasEquation() {
		logger.Warn("Output has no equation, value left unchanged.", "variable", v.name, "error", ErrMissingEquation)
		return false, nil
	}

	in := &equationInputs{c: c, v: v}
	next, err := v.equation.Fn(in)
	if len(in.undeclared) > 0 {
		err := fmt.Errorf("%w: %q read %v", ErrUndeclaredRead, v.name, in.undeclared)
		logger.Error("Equation broke its declaration.", "variable", v.name, "error", err)
		return false, err
	}
	if err != nil {
		logger.Warn("Equation failed, output set to NaN.", "variable", v.name, "error", err)
		next = value.NaN()
	}
	next = coerce(v.kind, next)
	logger.Debug("Calculated output.", "variable", v.name, "value", next.Str())

	if next.Equal(v.raw) {
		return false, nil
	}
	v.raw = next
	c.emitValue(v)
	return true, nil
}

func (c *Calculator) publishAll() {
	for _, v := range c.vars {
		c.emitDirection(v)
		c.emitValue(v)
		c.emitValidation(v)
	}
}

// equationInputs serves an equation's declared reads and records any read
// outside them.
type equationInputs struct {
	c          *Calculator
	v          *Variable
	undeclared []string
}

func (in *equationInputs) Value(name string) value.Value {
	if !slices.Contains(in.v.equation.Reads, name) {
		in.undeclared = append(in.undeclared, name)
		return value.NaN()
	}
	return in.c.vars[in.c.byName[name]].Value()
}

func (in *equationInputs) Float(name string) float64 {
	return in.Value(name).Float()
}
