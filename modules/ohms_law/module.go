// Package ohms_law is the built-in Ohm's law calculator: voltage, current and
// resistance linked by V = I * R, plus the dissipated power.
package ohms_law

import (
	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/registry"
	"github.com/vk/calcgrid/internal/units"
	"github.com/vk/calcgrid/internal/validation"
	"github.com/vk/calcgrid/internal/value"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Name is the registered calculator name.
const Name = "ohms_law"

// Register registers the template with the registry.
func (m *Module) Register(r *registry.Registry) error {
	return r.Register(&registry.Template{
		Info: registry.Info{
			Name:        Name,
			Title:       "Ohm's Law",
			Description: "Relates the voltage across a resistor to the current through it.",
			Categories:  []string{"Electronics", "Basic"},
			Tags:        []string{"ohm", "resistor", "voltage", "current", "power"},
			Source:      "builtin",
		},
		Declare: Declare,
	})
}

func number(f float64) *value.Value {
	v := value.Number(f)
	return &v
}

func positive() []validation.Validator {
	return []validation.Validator{
		validation.IsNumber(validation.Error),
		validation.IsGreaterThanZero(validation.Error),
	}
}

// Declare adds the variables and the voltage/current/resistance group to c.
// Resistance starts as the output.
func Declare(c *calc.Calculator) error {
	vars := []calc.VariableConfig{
		{
			Name:    "voltage",
			Help:    "Voltage across the resistor.",
			Default: number(12),
			Round:   4,
			Units: units.Set{
				{Name: "mV", Multiplier: 1e-3},
				{Name: "V", Multiplier: 1, Preferred: true},
				{Name: "kV", Multiplier: 1e3},
			},
			Equation: &calc.Equation{Reads: []string{"current", "resistance"}, Fn: func(in calc.Inputs) (value.Value, error) {
				return value.Number(in.Float("current") * in.Float("resistance")), nil
			}},
			Validators: positive(),
		},
		{
			Name:    "current",
			Help:    "Current through the resistor.",
			Default: number(0.1),
			Round:   4,
			Units: units.Set{
				{Name: "µA", Multiplier: 1e-6},
				{Name: "mA", Multiplier: 1e-3, Preferred: true},
				{Name: "A", Multiplier: 1},
			},
			Equation: &calc.Equation{Reads: []string{"voltage", "resistance"}, Fn: func(in calc.Inputs) (value.Value, error) {
				return value.Number(in.Float("voltage") / in.Float("resistance")), nil
			}},
			Validators: positive(),
		},
		{
			Name:  "resistance",
			Help:  "Resistance.",
			Round: 4,
			Units: units.Set{
				{Name: "mΩ", Multiplier: 1e-3},
				{Name: "Ω", Multiplier: 1, Preferred: true},
				{Name: "kΩ", Multiplier: 1e3},
				{Name: "MΩ", Multiplier: 1e6},
			},
			Equation: &calc.Equation{Reads: []string{"voltage", "current"}, Fn: func(in calc.Inputs) (value.Value, error) {
				return value.Number(in.Float("voltage") / in.Float("current")), nil
			}},
			Validators: positive(),
		},
		{
			Name:      "power",
			Help:      "Power dissipated in the resistor.",
			Round:     4,
			Direction: calc.Fixed(calc.Output),
			Units: units.Set{
				{Name: "mW", Multiplier: 1e-3},
				{Name: "W", Multiplier: 1, Preferred: true},
			},
			Equation: &calc.Equation{Reads: []string{"voltage", "current"}, Fn: func(in calc.Inputs) (value.Value, error) {
				return value.Number(in.Float("voltage") * in.Float("current")), nil
			}},
			Validators: []validation.Validator{
				validation.IsAtMost(0.25, validation.Warning, "More than a quarter watt: check the resistor's power rating."),
			},
		},
	}
	for _, cfg := range vars {
		if _, err := c.AddVariable(cfg); err != nil {
			return err
		}
	}
	_, err := c.AddGroup("vir", "resistance", "voltage", "current", "resistance")
	return err
}
