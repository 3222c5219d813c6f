package calc

import (
	"fmt"
	"slices"
)

// Direction is the role a variable currently plays.
type Direction int

const (
	// Input values are supplied externally.
	Input Direction = iota
	// Output values are computed by the variable's equation.
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection converts "input" or "output".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "input":
		return Input, nil
	case "output":
		return Output, nil
	}
	return Input, fmt.Errorf("unknown direction %q: must be 'input' or 'output'", s)
}

// DirectionFn decides a variable's current direction. It is re-evaluated on
// every refresh and never cached by the engine.
type DirectionFn func() Direction

// Fixed returns a DirectionFn that always yields d.
func Fixed(d Direction) DirectionFn {
	return func() Direction { return d }
}

// Group is an equation group: a set of variables linked by alternate
// equations of which exactly one is the Output. It plays the part of an
// exclusive toggle control; members without their own DirectionFn take
// their direction from the selection.
type Group struct {
	name     string
	members  []string
	selected string
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Members returns the member variable names in declaration order.
func (g *Group) Members() []string { return slices.Clone(g.members) }

// Selected returns the name of the member selected as Output.
func (g *Group) Selected() string { return g.selected }

// Has reports whether name is a member.
func (g *Group) Has(name string) bool { return slices.Contains(g.members, name) }

func (g *Group) selectMember(name string) error {
	if !g.Has(name) {
		return fmt.Errorf("%w: %q is not a member of group %q", ErrUnknownVariable, name, g.name)
	}
	g.selected = name
	return nil
}

// directionOf returns the DirectionFn installed on a member.
func (g *Group) directionOf(name string) DirectionFn {
	return func() Direction {
		if g.selected == name {
			return Output
		}
		return Input
	}
}
