package hcl

import (
	"context"
	"fmt"

	"github.com/vk/calcgrid/internal/config"
	"github.com/vk/calcgrid/internal/value"
)

// translateCalculator converts the decoded block into the agnostic model.
func translateCalculator(ctx context.Context, b *calculatorBlock) (*config.Calculator, error) {
	def := &config.Calculator{
		Name:        b.Name,
		Title:       b.Title,
		Description: b.Description,
		Categories:  b.Categories,
		Tags:        b.Tags,
	}
	if def.Title == "" {
		def.Title = b.Name
	}
	for _, g := range b.Groups {
		def.Groups = append(def.Groups, &config.Group{Name: g.Name, Members: g.Members, Output: g.Output})
	}
	for _, v := range b.Variables {
		tv, err := translateVariable(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("calculator %q: %w", b.Name, err)
		}
		def.Variables = append(def.Variables, tv)
	}
	return def, nil
}

func translateVariable(ctx context.Context, b *variableBlock) (*config.Variable, error) {
	v := &config.Variable{
		Name:        b.Name,
		Help:        b.Help,
		Engineering: b.Engineering,
		Direction:   b.Direction,
		Options:     b.Options,
		Hidden:      b.Hidden,
	}
	if b.Round != nil {
		v.Round = *b.Round
	}
	switch b.Direction {
	case "", "input", "output":
	default:
		return nil, fmt.Errorf("variable %q: unknown direction %q: must be 'input' or 'output'", b.Name, b.Direction)
	}

	if isExprDefined(ctx, b.Default, "default") {
		cv, diags := b.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("variable %q: invalid default value: %w", b.Name, diags)
		}
		if !cv.IsNull() {
			d, err := value.FromCty(cv)
			if err != nil {
				return nil, fmt.Errorf("variable %q: invalid default value: %w", b.Name, err)
			}
			v.Default = &d
		}
	}
	if isExprDefined(ctx, b.Equation, "equation") {
		v.Equation = b.Equation
	}

	for _, u := range b.Units {
		multiplier := 1.0
		if u.Multiplier != nil {
			multiplier = *u.Multiplier
		}
		v.Units = append(v.Units, &config.Unit{Name: u.Name, Multiplier: multiplier, Preferred: u.Preferred})
	}
	for _, val := range b.Validators {
		v.Validators = append(v.Validators, &config.Validator{
			Name:      val.Name,
			Level:     val.Level,
			Message:   val.Message,
			Threshold: val.Threshold,
			Other:     val.Other,
		})
	}
	for _, c := range b.Checks {
		v.Checks = append(v.Checks, &config.Check{Level: c.Level, Condition: c.Condition, Message: c.Message})
	}
	return v, nil
}
