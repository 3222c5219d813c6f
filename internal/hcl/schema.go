package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top-level blocks of a template file.
type fileRoot struct {
	Calculators []*calculatorBlock `hcl:"calculator,block"`
	Remain      hcl.Body           `hcl:",remain"`
}

type calculatorBlock struct {
	Name        string           `hcl:"name,label"`
	Title       string           `hcl:"title,optional"`
	Description string           `hcl:"description,optional"`
	Categories  []string         `hcl:"categories,optional"`
	Tags        []string         `hcl:"tags,optional"`
	Groups      []*groupBlock    `hcl:"group,block"`
	Variables   []*variableBlock `hcl:"variable,block"`
}

type groupBlock struct {
	Name    string   `hcl:"name,label"`
	Members []string `hcl:"members"`
	Output  string   `hcl:"output"`
}

type variableBlock struct {
	Name        string            `hcl:"name,label"`
	Help        string            `hcl:"help,optional"`
	Round       *int              `hcl:"round,optional"`
	Engineering bool              `hcl:"engineering,optional"`
	Default     hcl.Expression    `hcl:"default,optional"`
	Direction   string            `hcl:"direction,optional"`
	Options     []string          `hcl:"options,optional"`
	Hidden      bool              `hcl:"hidden,optional"`
	Equation    hcl.Expression    `hcl:"equation,optional"`
	Units       []*unitBlock      `hcl:"unit,block"`
	Validators  []*validatorBlock `hcl:"validator,block"`
	Checks      []*checkBlock     `hcl:"check,block"`
}

type unitBlock struct {
	Name       string   `hcl:"name,label"`
	Multiplier *float64 `hcl:"multiplier,optional"`
	Preferred  bool     `hcl:"preferred,optional"`
}

type validatorBlock struct {
	Name      string   `hcl:"name,label"`
	Level     string   `hcl:"level,optional"`
	Message   string   `hcl:"message,optional"`
	Threshold *float64 `hcl:"threshold,optional"`
	Other     string   `hcl:"other,optional"`
}

type checkBlock struct {
	Level     string         `hcl:"level,optional"`
	Condition hcl.Expression `hcl:"condition"`
	Message   string         `hcl:"message"`
}
