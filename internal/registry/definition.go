package registry

import (
	"fmt"

	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/config"
	"github.com/vk/calcgrid/internal/expr"
	"github.com/vk/calcgrid/internal/units"
	"github.com/vk/calcgrid/internal/validation"
	"github.com/vk/calcgrid/internal/value"
)

// FromDefinition compiles a loaded calculator definition into a template.
// Expressions are compiled once here; each declared calculator shares them.
func FromDefinition(def *config.Calculator) (*Template, error) {
	configs := make([]calc.VariableConfig, 0, len(def.Variables))
	for _, v := range def.Variables {
		cfg, err := variableConfig(v)
		if err != nil {
			return nil, fmt.Errorf("calculator %q, variable %q: %w", def.Name, v.Name, err)
		}
		configs = append(configs, cfg)
	}
	groups := def.Groups

	return &Template{
		Info: Info{
			Name:        def.Name,
			Title:       def.Title,
			Description: def.Description,
			Categories:  def.Categories,
			Tags:        def.Tags,
			Source:      def.Source,
		},
		Declare: func(c *calc.Calculator) error {
			for _, cfg := range configs {
				if _, err := c.AddVariable(cfg); err != nil {
					return err
				}
			}
			for _, g := range groups {
				if _, err := c.AddGroup(g.Name, g.Output, g.Members...); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

func variableConfig(v *config.Variable) (calc.VariableConfig, error) {
	cfg := calc.VariableConfig{
		Name:        v.Name,
		Default:     v.Default,
		Round:       v.Round,
		Engineering: v.Engineering,
		Help:        v.Help,
		Options:     v.Options,
		Hidden:      v.Hidden,
	}
	if len(v.Options) > 0 || (v.Default != nil && v.Default.Kind() == value.KindText) {
		cfg.Kind = value.KindText
	}
	for _, u := range v.Units {
		cfg.Units = append(cfg.Units, units.Unit{Name: u.Name, Multiplier: u.Multiplier, Preferred: u.Preferred})
	}

	switch {
	case v.Direction != "":
		d, err := calc.ParseDirection(v.Direction)
		if err != nil {
			return cfg, err
		}
		cfg.Direction = calc.Fixed(d)
	case v.Hidden:
		cfg.Direction = calc.Fixed(calc.Output)
	}

	if v.Equation != nil {
		compiled, err := expr.Compile(v.Equation)
		if err != nil {
			return cfg, fmt.Errorf("equation: %w", err)
		}
		cfg.Equation = compiled.Equation()
	}

	// Hidden variables are never validated.
	if v.Hidden {
		return cfg, nil
	}
	for _, def := range v.Validators {
		val, err := namedValidator(def, v.Options)
		if err != nil {
			return cfg, err
		}
		cfg.Validators = append(cfg.Validators, val)
	}
	for _, check := range v.Checks {
		level, err := levelOf(check.Level)
		if err != nil {
			return cfg, err
		}
		compiled, err := expr.Compile(check.Condition)
		if err != nil {
			return cfg, fmt.Errorf("check: %w", err)
		}
		cfg.Validators = append(cfg.Validators, compiled.Check(v.Name, level, check.Message))
	}
	return cfg, nil
}

// namedValidator resolves a validator block against the validator library.
func namedValidator(def *config.Validator, options []string) (validation.Validator, error) {
	level, err := levelOf(def.Level)
	if err != nil {
		return validation.Validator{}, err
	}

	var v validation.Validator
	switch def.Name {
	case "is_number":
		v = validation.IsNumber(level)
	case "is_greater_than_zero":
		v = validation.IsGreaterThanZero(level)
	case "is_at_least", "is_at_most":
		if def.Threshold == nil {
			return v, fmt.Errorf("validator %q needs a threshold", def.Name)
		}
		if def.Name == "is_at_least" {
			v = validation.IsAtLeast(*def.Threshold, level, def.Message)
		} else {
			v = validation.IsAtMost(*def.Threshold, level, def.Message)
		}
	case "is_less_than", "is_greater_than":
		if def.Other == "" {
			return v, fmt.Errorf("validator %q needs the other variable", def.Name)
		}
		if def.Name == "is_less_than" {
			v = validation.IsLessThan(def.Other, level)
		} else {
			v = validation.IsGreaterThan(def.Other, level)
		}
	case "is_one_of":
		if len(options) == 0 {
			return v, fmt.Errorf("validator %q needs the variable to declare options", def.Name)
		}
		v = validation.IsOneOf(options, level)
	default:
		return v, fmt.Errorf("unknown validator %q", def.Name)
	}
	if def.Message != "" {
		v.Message = def.Message
	}
	return v, nil
}

// levelOf parses a level, defaulting to error.
func levelOf(s string) (validation.Level, error) {
	if s == "" {
		return validation.Error, nil
	}
	return validation.ParseLevel(s)
}
