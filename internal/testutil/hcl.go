package testutil

import (
	"testing"

	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/validation"
	"github.com/vk/calcgrid/internal/value"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// OhmsLaw declares an unbuilt Ohm's law calculator with resistance selected
// as the output: voltage=10V, current=2A.
func OhmsLaw(t *testing.T) *calc.Calculator {
	t.Helper()
	c := calc.New("ohms_law")
	positive := []validation.Validator{
		validation.IsNumber(validation.Error),
		validation.IsGreaterThanZero(validation.Error),
	}
	mustAdd(t, c, calc.VariableConfig{
		Name:    "voltage",
		Default: Ptr(value.Number(10)),
		Round:   4,
		Equation: &calc.Equation{Reads: []string{"current", "resistance"}, Fn: func(in calc.Inputs) (value.Value, error) {
			return value.Number(in.Float("current") * in.Float("resistance")), nil
		}},
		Validators: positive,
	})
	mustAdd(t, c, calc.VariableConfig{
		Name:    "current",
		Default: Ptr(value.Number(2)),
		Round:   4,
		Equation: &calc.Equation{Reads: []string{"voltage", "resistance"}, Fn: func(in calc.Inputs) (value.Value, error) {
			return value.Number(in.Float("voltage") / in.Float("resistance")), nil
		}},
		Validators: positive,
	})
	mustAdd(t, c, calc.VariableConfig{
		Name:  "resistance",
		Round: 4,
		Equation: &calc.Equation{Reads: []string{"voltage", "current"}, Fn: func(in calc.Inputs) (value.Value, error) {
			return value.Number(in.Float("voltage") / in.Float("current")), nil
		}},
		Validators: positive,
	})
	if _, err := c.AddGroup("vir", "resistance", "voltage", "current", "resistance"); err != nil {
		t.Fatalf("adding group: %v", err)
	}
	return c
}

func mustAdd(t *testing.T, c *calc.Calculator, cfg calc.VariableConfig) {
	t.Helper()
	if _, err := c.AddVariable(cfg); err != nil {
		t.Fatalf("adding variable %q: %v", cfg.Name, err)
	}
}
