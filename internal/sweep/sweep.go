// Package sweep steps one input of a built calculator across a range and
// records an output, for tables and plots of how the output responds.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/value"
)

// DefaultSteps is the number of points when a range does not give one.
const DefaultSteps = 50

// MaxSteps bounds the number of points of a sweep.
const MaxSteps = 10000

// Range is an input sweep. From and To are in the input's display unit.
type Range struct {
	Input    string
	From, To float64
	Steps    int
	Log      bool
}

// ParseRange reads "name=from:to[:steps][:log]".
func ParseRange(s string) (Range, error) {
	name, bounds, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Range{}, fmt.Errorf("invalid sweep %q: expected name=from:to[:steps][:log]", s)
	}
	parts := strings.Split(bounds, ":")
	r := Range{Input: name, Steps: DefaultSteps}
	if n := len(parts); n > 0 && strings.EqualFold(strings.TrimSpace(parts[n-1]), "log") {
		r.Log = true
		parts = parts[:n-1]
	}
	if len(parts) < 2 || len(parts) > 3 {
		return Range{}, fmt.Errorf("invalid sweep %q: expected name=from:to[:steps][:log]", s)
	}

	var err error
	if r.From, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return Range{}, fmt.Errorf("invalid sweep start %q: %w", parts[0], err)
	}
	if r.To, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return Range{}, fmt.Errorf("invalid sweep end %q: %w", parts[1], err)
	}
	if len(parts) == 3 {
		if r.Steps, err = strconv.Atoi(strings.TrimSpace(parts[2])); err != nil {
			return Range{}, fmt.Errorf("invalid sweep steps %q: %w", parts[2], err)
		}
	}
	return r, r.validate()
}

func (r Range) validate() error {
	if r.Steps < 2 {
		return errors.New("a sweep needs at least 2 steps")
	}
	if r.Steps > MaxSteps {
		return fmt.Errorf("a sweep has at most %d steps, got %d", MaxSteps, r.Steps)
	}
	if r.From == r.To {
		return errors.New("sweep start and end must differ")
	}
	if r.Log && (r.From <= 0 || r.To <= 0) {
		return errors.New("a logarithmic sweep needs a positive range")
	}
	return nil
}

// Values returns the input values of the sweep, in display units.
func (r Range) Values() []float64 {
	out := make([]float64, r.Steps)
	last := float64(r.Steps - 1)
	for i := range out {
		t := float64(i) / last
		if r.Log {
			out[i] = r.From * math.Pow(r.To/r.From, t)
		} else {
			out[i] = r.From + (r.To-r.From)*t
		}
	}
	return out
}

// Point is one sweep sample in display units. Y is NaN when the output could
// not be computed.
type Point struct {
	X, Y float64
}

// Result is a completed sweep.
type Result struct {
	Calculator string
	Input      string
	InputUnit  string
	Output     string
	OutputUnit string
	Log        bool
	Points     []Point
}

// Run sweeps r.Input of c and samples output at each step. The input is
// restored afterwards.
func Run(ctx context.Context, c *calc.Calculator, r Range, output string) (Result, error) {
	if err := r.validate(); err != nil {
		return Result{}, err
	}
	in, ok := c.Variable(r.Input)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", calc.ErrUnknownVariable, r.Input)
	}
	out, ok := c.Variable(output)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", calc.ErrUnknownVariable, output)
	}
	if in.Direction() != calc.Input {
		return Result{}, fmt.Errorf("cannot sweep %q: it is an output", r.Input)
	}
	if out.Direction() != calc.Output {
		return Result{}, fmt.Errorf("cannot sample %q: it is an input", output)
	}

	res := Result{
		Calculator: c.Name(),
		Input:      r.Input,
		Output:     output,
		Log:        r.Log,
		Points:     make([]Point, 0, r.Steps),
	}
	if u := in.Unit(); u != nil {
		res.InputUnit = u.Name
	}
	if u := out.Unit(); u != nil {
		res.OutputUnit = u.Name
	}

	original := in.Value()
	defer func() {
		if err := c.SetValue(context.WithoutCancel(ctx), r.Input, original); err != nil {
			ctxlog.FromContext(ctx).Warn("Failed to restore swept input.", "variable", r.Input, "error", err)
		}
	}()

	for _, x := range r.Values() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		raw := x
		if u := in.Unit(); u != nil {
			raw = u.FromDisplay(x)
		}
		if err := c.SetValue(ctx, r.Input, value.Number(raw)); err != nil {
			return Result{}, err
		}
		y := out.Float()
		if u := out.Unit(); u != nil {
			y = u.ToDisplay(y)
		}
		res.Points = append(res.Points, Point{X: x, Y: y})
	}
	return res, nil
}
