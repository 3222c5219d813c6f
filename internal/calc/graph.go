package calc

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/dag"
)

// bindGroups attaches every group member to its group and installs the
// group's direction function on members that do not bring their own.
func (c *Calculator) bindGroups() error {
	for _, g := range c.groups {
		for _, name := range g.members {
			v, err := c.lookupVar(name)
			if err != nil {
				return fmt.Errorf("group %q: %w", g.name, err)
			}
			if v.group != "" && v.group != g.name {
				return fmt.Errorf("calculator %q: variable %q is in groups %q and %q", c.name, name, v.group, g.name)
			}
			v.group = g.name
			if v.directionFn == nil {
				v.directionFn = g.directionOf(name)
			}
		}
	}
	for _, v := range c.vars {
		if v.directionFn == nil {
			v.directionFn = Fixed(Input)
		}
	}
	return nil
}

// findDependenciesAndDependants resolves the declared reads of every
// equation and cross-variable validator and links both directions. The
// result does not depend on the current directions.
func (c *Calculator) findDependenciesAndDependants(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	c.equations = dag.New(len(c.vars))
	for _, v := range c.vars {
		v.dependencies, v.dependants = nil, nil
		v.validationReads, v.validationDependants = nil, nil
	}

	for _, v := range c.vars {
		if v.equation == nil {
			continue
		}
		for _, name := range v.equation.Reads {
			d, err := c.lookupVar(name)
			if err != nil {
				return fmt.Errorf("equation of %q: %w", v.name, err)
			}
			if err := c.equations.AddEdge(int(d.id), int(v.id)); err != nil {
				return fmt.Errorf("equation of %q reads itself: %w", v.name, err)
			}
		}
	}

	for _, v := range c.vars {
		deps, _ := c.equations.Dependencies(int(v.id))
		v.dependencies = toVarIDs(deps)
		dependants, _ := c.equations.Dependents(int(v.id))
		v.dependants = toVarIDs(dependants)
	}

	for _, v := range c.vars {
		for _, validator := range v.validators {
			for _, name := range validator.Reads {
				d, err := c.lookupVar(name)
				if err != nil {
					return fmt.Errorf("validator %q of %q: %w", validator.Name, v.name, err)
				}
				if d.id == v.id {
					continue
				}
				v.validationReads = addID(v.validationReads, d.id)
				d.validationDependants = addID(d.validationDependants, v.id)
			}
		}
	}

	for _, v := range c.vars {
		logger.Debug("Linked variable.",
			"variable", v.name,
			"dependencies", c.names(v.dependencies),
			"dependants", c.names(v.dependants),
			"validation_dependants", c.names(v.validationDependants))
	}
	return nil
}

// activeGraph is the equation graph restricted to current Outputs.
func (c *Calculator) activeGraph() *dag.Graph {
	return c.equations.Subgraph(func(id int) bool {
		return c.vars[id].direction == Output
	})
}

func (c *Calculator) names(ids []VarID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = c.vars[id].name
	}
	return out
}

func toVarIDs(ids []int) []VarID {
	out := make([]VarID, len(ids))
	for i, id := range ids {
		out[i] = VarID(id)
	}
	return out
}

func addID(ids []VarID, id VarID) []VarID {
	i, found := slices.BinarySearch(ids, id)
	if found {
		return ids
	}
	return slices.Insert(ids, i, id)
}
