package calc_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/testutil"
	"github.com/vk/calcgrid/internal/units"
	"github.com/vk/calcgrid/internal/validation"
	"github.com/vk/calcgrid/internal/value"
)

func floatOf(t *testing.T, c *calc.Calculator, name string) float64 {
	t.Helper()
	v, ok := c.Variable(name)
	require.True(t, ok, "variable %q not found", name)
	return v.Float()
}

func built(t *testing.T, c *calc.Calculator) *testutil.Recorder {
	t.Helper()
	rec := &testutil.Recorder{}
	c.Subscribe(rec)
	ctx, _ := testutil.LoggedContext(t)
	require.NoError(t, c.Build(ctx))
	return rec
}

func TestOhmsLaw_RoundTrip(t *testing.T) {
	// --- Arrange ---
	c := testutil.OhmsLaw(t)
	built(t, c)
	ctx := context.Background()
	require.InDelta(t, 5.0, floatOf(t, c, "resistance"), 1e-12)

	// --- Act ---
	require.NoError(t, c.SelectOutput(ctx, "vir", "voltage"))
	require.NoError(t, c.SetValue(ctx, "current", value.Number(2)))
	require.NoError(t, c.SetValue(ctx, "resistance", value.Number(5)))

	// --- Assert ---
	assert.InDelta(t, 10.0, floatOf(t, c, "voltage"), 1e-12)

	// --- Act ---
	require.NoError(t, c.SelectOutput(ctx, "vir", "current"))

	// --- Assert ---
	assert.InDelta(t, 2.0, floatOf(t, c, "current"), 1e-12)
	cur, _ := c.Variable("current")
	assert.Equal(t, calc.Output, cur.Direction())
	volt, _ := c.Variable("voltage")
	assert.Equal(t, calc.Input, volt.Direction())
}

func TestBuild_PublishesOneEventPerVariable(t *testing.T) {
	c := testutil.OhmsLaw(t)
	rec := built(t, c)

	assert.Len(t, rec.Values, 3)
	assert.Len(t, rec.Directions, 3)
	assert.Len(t, rec.Validations, 3)

	d, ok := rec.DirectionOf("resistance")
	require.True(t, ok)
	assert.Equal(t, calc.Output, d)
	r := rec.ValuesOf("resistance")
	require.Len(t, r, 1)
	assert.Equal(t, "5", r[0].Formatted)
	assert.Equal(t, validation.Ok, c.Worst().Level)
}

func TestBuild_Twice(t *testing.T) {
	c := testutil.OhmsLaw(t)
	built(t, c)

	err := c.Build(context.Background())
	assert.ErrorIs(t, err, calc.ErrAlreadyBuilt)

	_, err = c.AddVariable(calc.VariableConfig{Name: "late"})
	assert.ErrorIs(t, err, calc.ErrAlreadyBuilt)
}

func TestOperations_NeedBuild(t *testing.T) {
	c := testutil.OhmsLaw(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.SetValue(ctx, "current", value.Number(1)), calc.ErrNotBuilt)
	assert.ErrorIs(t, c.RecalculateAll(ctx), calc.ErrNotBuilt)
	assert.ErrorIs(t, c.RefreshDirections(ctx), calc.ErrNotBuilt)
	assert.ErrorIs(t, c.SelectOutput(ctx, "vir", "voltage"), calc.ErrNotBuilt)
}

func TestSetValue_Idempotent(t *testing.T) {
	c := testutil.OhmsLaw(t)
	rec := built(t, c)
	ctx := context.Background()

	require.NoError(t, c.SetValue(ctx, "current", value.Number(4)))
	first := floatOf(t, c, "resistance")
	rec.Reset()

	require.NoError(t, c.SetValue(ctx, "current", value.Number(4)))
	assert.Equal(t, first, floatOf(t, c, "resistance"))
	assert.Empty(t, rec.Values, "no value should change on a repeated edit")
	assert.Empty(t, rec.Validations)
}

func TestRecalculateAll_Idempotent(t *testing.T) {
	// --- Arrange ---
	c := testutil.OhmsLaw(t)
	rec := built(t, c)
	ctx := context.Background()
	require.NoError(t, c.SetValue(ctx, "current", value.Number(4)))
	rec.Reset()

	// --- Act ---
	require.NoError(t, c.RecalculateAll(ctx))
	first := c.Snapshot()
	firstValues, firstValidations := rec.Values, rec.Validations
	rec.Reset()
	require.NoError(t, c.RecalculateAll(ctx))

	// --- Assert ---
	assert.Equal(t, first, c.Snapshot())
	assert.Equal(t, firstValues, rec.Values)
	assert.Equal(t, firstValidations, rec.Validations)
	assert.Empty(t, rec.Values, "a second pass without edits should change nothing")
	assert.Empty(t, rec.Directions)
}

func TestSetValue_InputsUntouched(t *testing.T) {
	c := testutil.OhmsLaw(t)
	rec := built(t, c)
	rec.Reset()

	require.NoError(t, c.SetValue(context.Background(), "current", value.Number(4)))

	assert.InDelta(t, 10.0, floatOf(t, c, "voltage"), 1e-12)
	assert.InDelta(t, 4.0, floatOf(t, c, "current"), 1e-12)
	assert.InDelta(t, 2.5, floatOf(t, c, "resistance"), 1e-12)
	assert.Empty(t, rec.ValuesOf("voltage"))
	require.Len(t, rec.ValuesOf("resistance"), 1)
	assert.Contains(t, rec.Reads, "voltage")
	assert.Contains(t, rec.Reads, "current")
}

func TestSetValue_OutputRejected(t *testing.T) {
	c := testutil.OhmsLaw(t)
	rec := built(t, c)
	rec.Reset()

	err := c.SetValue(context.Background(), "resistance", value.Number(1))

	require.ErrorIs(t, err, calc.ErrInvalidMutation)
	assert.InDelta(t, 5.0, floatOf(t, c, "resistance"), 1e-12)
	assert.Empty(t, rec.Values)
}

func TestUnknownReferences(t *testing.T) {
	c := testutil.OhmsLaw(t)
	built(t, c)
	ctx := context.Background()

	assert.ErrorIs(t, c.SetValue(ctx, "power", value.Number(1)), calc.ErrUnknownVariable)
	assert.ErrorIs(t, c.SelectOutput(ctx, "nope", "voltage"), calc.ErrUnknownGroup)
	assert.ErrorIs(t, c.SelectOutput(ctx, "vir", "power"), calc.ErrUnknownVariable)
	_, err := c.Validate("power")
	assert.ErrorIs(t, err, calc.ErrUnknownVariable)

	unbuilt := calc.New("broken")
	_, err = unbuilt.AddVariable(calc.VariableConfig{
		Name:     "x",
		Equation: &calc.Equation{Reads: []string{"missing"}, Fn: func(calc.Inputs) (value.Value, error) { return value.Number(1), nil }},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, unbuilt.Build(ctx), calc.ErrUnknownVariable)
}

func TestPropagation_OnlyDownstreamOutputs(t *testing.T) {
	// --- Arrange ---
	calls := map[string]int{}
	counting := func(name string, reads ...string) *calc.Equation {
		return &calc.Equation{Reads: reads, Fn: func(in calc.Inputs) (value.Value, error) {
			calls[name]++
			sum := 0.0
			for _, r := range reads {
				sum += in.Float(r)
			}
			return value.Number(sum + 1), nil
		}}
	}
	c := calc.New("chain")
	for _, cfg := range []calc.VariableConfig{
		{Name: "a", Default: testutil.Ptr(value.Number(1))},
		{Name: "b", Direction: calc.Fixed(calc.Output), Equation: counting("b", "a")},
		{Name: "c", Direction: calc.Fixed(calc.Output), Equation: counting("c", "b")},
		{Name: "e", Default: testutil.Ptr(value.Number(1))},
		{Name: "d", Direction: calc.Fixed(calc.Output), Equation: counting("d", "e")},
	} {
		_, err := c.AddVariable(cfg)
		require.NoError(t, err)
	}
	built(t, c)
	require.Equal(t, map[string]int{"b": 1, "c": 1, "d": 1}, calls)

	// --- Act ---
	require.NoError(t, c.SetValue(context.Background(), "a", value.Number(10)))

	// --- Assert ---
	assert.Equal(t, map[string]int{"b": 2, "c": 2, "d": 1}, calls)
	assert.Equal(t, 11.0, floatOf(t, c, "b"))
	assert.Equal(t, 12.0, floatOf(t, c, "c"))
	assert.Equal(t, 2.0, floatOf(t, c, "d"))
}

func TestMissingEquation_LogsAndKeepsValue(t *testing.T) {
	c := calc.New("partial")
	_, err := c.AddVariable(calc.VariableConfig{
		Name:      "orphan",
		Default:   testutil.Ptr(value.Number(7)),
		Direction: calc.Fixed(calc.Output),
	})
	require.NoError(t, err)

	ctx, logs := testutil.LoggedContext(t)
	require.NoError(t, c.Build(ctx))

	assert.Equal(t, 7.0, floatOf(t, c, "orphan"))
	assert.Contains(t, logs.String(), "Output has no equation")
}

func TestNonConvergence_AbortsBeforeMutation(t *testing.T) {
	// --- Arrange ---
	looped := false
	mode := func() calc.Direction {
		if looped {
			return calc.Output
		}
		return calc.Input
	}
	sum := func(reads ...string) *calc.Equation {
		return &calc.Equation{Reads: reads, Fn: func(in calc.Inputs) (value.Value, error) {
			total := 0.0
			for _, r := range reads {
				total += in.Float(r)
			}
			return value.Number(total), nil
		}}
	}
	c := calc.New("loop")
	for _, cfg := range []calc.VariableConfig{
		{Name: "x", Default: testutil.Ptr(value.Number(1))},
		{Name: "a", Default: testutil.Ptr(value.Number(2)), Direction: mode, Equation: sum("b", "x")},
		{Name: "b", Default: testutil.Ptr(value.Number(3)), Direction: mode, Equation: sum("a", "x")},
	} {
		_, err := c.AddVariable(cfg)
		require.NoError(t, err)
	}
	rec := built(t, c)
	ctx := context.Background()

	looped = true
	require.NoError(t, c.RefreshDirections(ctx))
	rec.Reset()

	// --- Act ---
	err := c.SetValue(ctx, "x", value.Number(100))

	// --- Assert ---
	require.ErrorIs(t, err, calc.ErrNonConvergence)
	var ncErr *calc.NonConvergenceError
	require.True(t, errors.As(err, &ncErr))
	assert.Equal(t, []string{"a", "b"}, ncErr.Variables)
	assert.Contains(t, err.Error(), "cycle through a -> b")

	assert.Equal(t, 1.0, floatOf(t, c, "x"))
	assert.Equal(t, 2.0, floatOf(t, c, "a"))
	assert.Equal(t, 3.0, floatOf(t, c, "b"))
	assert.Empty(t, rec.Values)

	assert.ErrorIs(t, c.RecalculateAll(ctx), calc.ErrNonConvergence)
}

func TestNonConvergence_AtBuild(t *testing.T) {
	c := calc.New("loop")
	for _, cfg := range []calc.VariableConfig{
		{Name: "a", Direction: calc.Fixed(calc.Output), Equation: &calc.Equation{Reads: []string{"b"}, Fn: func(in calc.Inputs) (value.Value, error) { return in.Value("b"), nil }}},
		{Name: "b", Direction: calc.Fixed(calc.Output), Equation: &calc.Equation{Reads: []string{"a"}, Fn: func(in calc.Inputs) (value.Value, error) { return in.Value("a"), nil }}},
	} {
		_, err := c.AddVariable(cfg)
		require.NoError(t, err)
	}

	err := c.Build(context.Background())
	assert.ErrorIs(t, err, calc.ErrNonConvergence)
	assert.False(t, c.Built())
}

func TestDirectionConflict(t *testing.T) {
	c := calc.New("conflict")
	eq := &calc.Equation{Fn: func(calc.Inputs) (value.Value, error) { return value.Number(1), nil }}
	_, err := c.AddVariable(calc.VariableConfig{Name: "p", Equation: eq})
	require.NoError(t, err)
	_, err = c.AddVariable(calc.VariableConfig{Name: "q", Equation: eq, Direction: calc.Fixed(calc.Output)})
	require.NoError(t, err)
	_, err = c.AddGroup("pq", "p", "p", "q")
	require.NoError(t, err)

	err = c.Build(context.Background())
	require.ErrorIs(t, err, calc.ErrDirectionConflict)
	assert.Contains(t, err.Error(), `group "pq" has 2 outputs`)
}

func TestNonConvergence_GroupWithTwoOutputs(t *testing.T) {
	// --- Arrange ---
	c := calc.New("pair")
	for _, cfg := range []calc.VariableConfig{
		{Name: "a", Direction: calc.Fixed(calc.Output), Equation: &calc.Equation{Reads: []string{"b"}, Fn: func(in calc.Inputs) (value.Value, error) { return in.Value("b"), nil }}},
		{Name: "b", Direction: calc.Fixed(calc.Output), Equation: &calc.Equation{Reads: []string{"a"}, Fn: func(in calc.Inputs) (value.Value, error) { return in.Value("a"), nil }}},
	} {
		_, err := c.AddVariable(cfg)
		require.NoError(t, err)
	}
	_, err := c.AddGroup("ab", "a", "a", "b")
	require.NoError(t, err)

	// --- Act ---
	err = c.Build(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.ErrorIs(t, err, calc.ErrNonConvergence)
	assert.ErrorIs(t, err, calc.ErrDirectionConflict)
	var conflict *calc.GroupConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "ab", conflict.Group)
	assert.Equal(t, []string{"a", "b"}, conflict.Outputs)
	assert.False(t, c.Built())
}

func TestDirectionConflict_NoOutput(t *testing.T) {
	c := calc.New("idle")
	for _, name := range []string{"p", "q"} {
		_, err := c.AddVariable(calc.VariableConfig{Name: name, Direction: calc.Fixed(calc.Input)})
		require.NoError(t, err)
	}
	_, err := c.AddGroup("pq", "p", "p", "q")
	require.NoError(t, err)

	err = c.Build(context.Background())

	assert.ErrorIs(t, err, calc.ErrDirectionConflict)
	assert.NotErrorIs(t, err, calc.ErrNonConvergence)
}

func TestAddGroup_Errors(t *testing.T) {
	c := calc.New("groups")
	_, err := c.AddGroup("solo", "a", "a")
	assert.ErrorContains(t, err, "at least two members")

	_, err = c.AddGroup("g", "z", "a", "b")
	assert.ErrorIs(t, err, calc.ErrUnknownVariable)

	_, err = c.AddGroup("g", "a", "a", "b")
	require.NoError(t, err)
	_, err = c.AddGroup("g", "a", "a", "b")
	assert.ErrorContains(t, err, "duplicate group")
}

func TestUndeclaredRead(t *testing.T) {
	c := calc.New("sneaky")
	_, err := c.AddVariable(calc.VariableConfig{Name: "a", Default: testutil.Ptr(value.Number(1))})
	require.NoError(t, err)
	_, err = c.AddVariable(calc.VariableConfig{Name: "b", Default: testutil.Ptr(value.Number(2))})
	require.NoError(t, err)
	_, err = c.AddVariable(calc.VariableConfig{
		Name:      "out",
		Direction: calc.Fixed(calc.Output),
		Equation: &calc.Equation{Reads: []string{"a"}, Fn: func(in calc.Inputs) (value.Value, error) {
			return value.Number(in.Float("a") + in.Float("b")), nil
		}},
	})
	require.NoError(t, err)

	err = c.Build(context.Background())
	require.ErrorIs(t, err, calc.ErrUndeclaredRead)
	assert.Contains(t, err.Error(), "[b]")
}

func TestEquationError_StoresNaN(t *testing.T) {
	c := calc.New("failing")
	_, err := c.AddVariable(calc.VariableConfig{
		Name:       "out",
		Default:    testutil.Ptr(value.Number(3)),
		Direction:  calc.Fixed(calc.Output),
		Validators: []validation.Validator{validation.IsNumber(validation.Error)},
		Equation: &calc.Equation{Fn: func(calc.Inputs) (value.Value, error) {
			return value.Value{}, errors.New("domain error")
		}},
	})
	require.NoError(t, err)

	ctx, logs := testutil.LoggedContext(t)
	require.NoError(t, c.Build(ctx))

	assert.True(t, math.IsNaN(floatOf(t, c, "out")))
	out, _ := c.Variable("out")
	assert.Equal(t, validation.Error, out.Worst().Level)
	assert.Equal(t, "Value must be a number.", out.Worst().Message)
	assert.Contains(t, logs.String(), "domain error")
}

func TestLowPassFilter_Formatted(t *testing.T) {
	// --- Arrange ---
	c := calc.New("low_pass_rc")
	for _, cfg := range []calc.VariableConfig{
		{
			Name:    "r",
			Default: testutil.Ptr(value.Number(1000)),
			Units:   units.Set{{Name: "Ω", Multiplier: 1}, {Name: "kΩ", Multiplier: 1e3}},
			Round:   4,
		},
		{
			Name:    "c",
			Default: testutil.Ptr(value.Number(1e-6)),
			Units:   units.Set{{Name: "nF", Multiplier: 1e-9}, {Name: "µF", Multiplier: 1e-6, Preferred: true}},
			Round:   4,
		},
		{
			Name:      "fc",
			Direction: calc.Fixed(calc.Output),
			Units:     units.Set{{Name: "Hz", Multiplier: 1}, {Name: "kHz", Multiplier: 1e3}},
			Round:     4,
			Validators: []validation.Validator{
				validation.IsAtMost(1e6, validation.Warning, "Frequency is unusually high."),
			},
			Equation: &calc.Equation{Reads: []string{"r", "c"}, Fn: func(in calc.Inputs) (value.Value, error) {
				return value.Number(1 / (2 * math.Pi * in.Float("r") * in.Float("c"))), nil
			}},
		},
	} {
		_, err := c.AddVariable(cfg)
		require.NoError(t, err)
	}
	rec := built(t, c)

	// --- Assert ---
	fc, _ := c.Variable("fc")
	assert.InDelta(t, 159.1549, fc.Float(), 1e-4)
	assert.Equal(t, "159.2 Hz", fc.Formatted())
	cv, _ := c.Variable("c")
	assert.Equal(t, "1 µF", cv.Formatted())

	// --- Act ---
	require.NoError(t, c.SetUnit("fc", "kHz"))
	assert.Equal(t, "0.1592 kHz", fc.Formatted())
	last := rec.ValuesOf("fc")
	assert.Equal(t, "kHz", last[len(last)-1].Unit)
	assert.Error(t, c.SetUnit("fc", "MHz"))

	require.NoError(t, c.SetValue(context.Background(), "c", value.Number(1e-12)))
	res, ok := rec.LastValidation("fc")
	require.True(t, ok)
	assert.Equal(t, validation.Warning, res.Level)
	assert.Equal(t, validation.Warning, c.Worst().Level)
}

func TestValidationDependants_Revalidated(t *testing.T) {
	// --- Arrange ---
	c := calc.New("range")
	_, err := c.AddVariable(calc.VariableConfig{
		Name:       "min",
		Default:    testutil.Ptr(value.Number(1)),
		Validators: []validation.Validator{validation.IsLessThan("max", validation.Error)},
	})
	require.NoError(t, err)
	_, err = c.AddVariable(calc.VariableConfig{Name: "max", Default: testutil.Ptr(value.Number(5))})
	require.NoError(t, err)
	rec := built(t, c)

	maxVar, _ := c.Variable("max")
	minVar, _ := c.Variable("min")
	require.Equal(t, []calc.VarID{minVar.ID()}, maxVar.ValidationDependants())
	require.Equal(t, validation.Ok, minVar.Worst().Level)

	// --- Act ---
	require.NoError(t, c.SetValue(context.Background(), "max", value.Number(0)))

	// --- Assert ---
	res, ok := rec.LastValidation("min")
	require.True(t, ok)
	assert.Equal(t, validation.Error, res.Level)
	assert.Equal(t, validation.Error, minVar.Worst().Level)
}

func TestSnapshot_Restore(t *testing.T) {
	// --- Arrange ---
	src := testutil.OhmsLaw(t)
	built(t, src)
	ctx := context.Background()
	require.NoError(t, src.SelectOutput(ctx, "vir", "voltage"))
	require.NoError(t, src.SetValue(ctx, "current", value.Number(3)))
	snap := src.Snapshot()

	// --- Act ---
	dst := testutil.OhmsLaw(t)
	rec := &testutil.Recorder{}
	dst.Subscribe(rec)
	require.NoError(t, dst.Build(ctx, calc.WithSnapshot(snap)))

	// --- Assert ---
	assert.Equal(t, snap, dst.Snapshot())
	assert.InDelta(t, 15.0, floatOf(t, dst, "voltage"), 1e-12)
	g, _ := dst.Group("vir")
	assert.Equal(t, "voltage", g.Selected())
	d, _ := rec.DirectionOf("voltage")
	assert.Equal(t, calc.Output, d)
}

func TestSnapshot_UnknownEntriesSkipped(t *testing.T) {
	c := testutil.OhmsLaw(t)
	snap := calc.Snapshot{Calculator: "ohms_law", Variables: []calc.SnapshotEntry{
		{Name: "gone", Value: value.Number(1)},
		{Name: "current", Value: value.Number(4)},
	}}
	ctx, logs := testutil.LoggedContext(t)

	require.NoError(t, c.Build(ctx, calc.WithSnapshot(snap)))

	assert.InDelta(t, 2.5, floatOf(t, c, "resistance"), 1e-12)
	assert.Contains(t, logs.String(), "unknown variable")
}

func TestChoiceVariable_Defaults(t *testing.T) {
	c := calc.New("choices")
	layer, err := c.AddVariable(calc.VariableConfig{
		Name:       "layer",
		Kind:       value.KindText,
		Options:    []string{"external", "internal"},
		Validators: []validation.Validator{validation.IsOneOf([]string{"external", "internal"}, validation.Error)},
	})
	require.NoError(t, err)
	built(t, c)

	assert.Equal(t, "external", layer.Value().Str())
	require.NoError(t, c.SetValue(context.Background(), "layer", value.Text("core")))
	assert.Equal(t, validation.Error, layer.Worst().Level)
	assert.Equal(t, "core", layer.Formatted())
}

func TestDisableUpdate_SilencesVariable(t *testing.T) {
	c := testutil.OhmsLaw(t)
	rec := built(t, c)
	rec.Reset()

	res, _ := c.Variable("resistance")
	res.SetDisableUpdate(true)
	require.NoError(t, c.SetValue(context.Background(), "current", value.Number(5)))

	assert.Empty(t, rec.ValuesOf("resistance"))
	assert.InDelta(t, 2.0, res.Float(), 1e-12)
	assert.NotEmpty(t, rec.ValuesOf("current"))

	res.SetDisableUpdate(false)
	assert.False(t, res.UpdatesDisabled())
}
