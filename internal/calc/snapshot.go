package calc

import (
	"context"

	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/value"
)

// Snapshot is the persistable state of a calculator: the raw value and
// direction of every variable, in declaration order.
type Snapshot struct {
	Calculator string
	Variables  []SnapshotEntry
}

// SnapshotEntry is one variable of a Snapshot.
type SnapshotEntry struct {
	Name      string
	Value     value.Value
	Direction Direction
}

// Snapshot captures the current state.
func (c *Calculator) Snapshot() Snapshot {
	s := Snapshot{Calculator: c.name, Variables: make([]SnapshotEntry, len(c.vars))}
	for i, v := range c.vars {
		s.Variables[i] = SnapshotEntry{Name: v.name, Value: v.raw, Direction: v.direction}
	}
	return s
}

// applySnapshot loads raw values and turns recorded Outputs into group
// selections. Unknown variables are skipped with a warning; directions of
// variables outside groups come from their direction functions alone.
func (c *Calculator) applySnapshot(ctx context.Context, s Snapshot) {
	logger := ctxlog.FromContext(ctx)
	if s.Calculator != "" && s.Calculator != c.name {
		logger.Warn("Snapshot belongs to a different calculator.", "snapshot_calculator", s.Calculator)
	}

	for _, e := range s.Variables {
		v, ok := c.Variable(e.Name)
		if !ok {
			logger.Warn("Snapshot names an unknown variable, skipping.", "variable", e.Name)
			continue
		}
		v.raw = coerce(v.kind, e.Value)

		if e.Direction != Output {
			continue
		}
		if g, ok := c.groupByName[v.group]; ok {
			if err := g.selectMember(v.name); err != nil {
				logger.Warn("Snapshot selection ignored.", "variable", v.name, "group", g.name, "error", err)
			}
		} else if v.directionFn() != Output {
			logger.Warn("Snapshot direction ignored for variable outside a group.", "variable", v.name)
		}
	}
	logger.Debug("Snapshot applied.", "entries", len(s.Variables))
}
