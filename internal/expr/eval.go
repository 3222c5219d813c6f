package expr

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/validation"
	"github.com/vk/calcgrid/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Compiled is an analysed expression ready to be bound to a calculator.
type Compiled struct {
	expr  hcl.Expression
	reads []string
	funcs map[string]function.Function
}

// Parse parses source text as an HCL expression and compiles it.
func Parse(src, filename string) (*Compiled, error) {
	e, diags := hclsyntax.ParseExpression([]byte(src), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	return Compile(e)
}

// Compile checks that e only calls known functions and records the
// variables it reads.
func Compile(e hcl.Expression) (*Compiled, error) {
	if e == nil {
		return nil, fmt.Errorf("expression is nil")
	}
	c := NewContainer(e)
	funcs := Functions()
	var unknown []string
	for _, name := range c.CalledFunctions() {
		if _, ok := funcs[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%s: unknown function(s) %s", e.Range(), strings.Join(unknown, ", "))
	}
	return &Compiled{expr: e, reads: c.References(), funcs: funcs}, nil
}

// Reads returns the variable names the expression reads.
func (c *Compiled) Reads() []string { return slices.Clone(c.reads) }

// Range returns the source range of the expression.
func (c *Compiled) Range() hcl.Range { return c.expr.Range() }

// Eval evaluates the expression with the given variable values.
func (c *Compiled) Eval(vars map[string]value.Value) (value.Value, error) {
	out, diags := c.evalCty(vars)
	if diags.HasErrors() {
		return value.NaN(), diags
	}
	return value.FromCty(out)
}

func (c *Compiled) evalCty(vars map[string]value.Value) (cty.Value, hcl.Diagnostics) {
	ctx := &hcl.EvalContext{
		Variables: make(map[string]cty.Value, len(vars)),
		Functions: c.funcs,
	}
	for name, v := range vars {
		ctx.Variables[name] = value.ToCty(v)
	}
	return c.expr.Value(ctx)
}

// Equation binds the expression as a calculator equation.
func (c *Compiled) Equation() *calc.Equation {
	return &calc.Equation{
		Reads: c.Reads(),
		Fn: func(in calc.Inputs) (value.Value, error) {
			vars := make(map[string]value.Value, len(c.reads))
			for _, name := range c.reads {
				vars[name] = in.Value(name)
			}
			return c.Eval(vars)
		},
	}
}

// Check binds the expression as the predicate of a validator owned by the
// named variable. The owner is excluded from the declared reads. A condition
// that cannot be decided yet, because an operand is not a number, passes;
// one that fails to evaluate or is not a bool fails.
func (c *Compiled) Check(owner string, level validation.Level, message string) validation.Validator {
	reads := slices.DeleteFunc(c.Reads(), func(name string) bool { return name == owner })
	pass := func(own value.Value, others validation.Lookup) bool {
		vars := make(map[string]value.Value, len(c.reads))
		for _, name := range c.reads {
			if name == owner {
				vars[name] = own
				continue
			}
			if v, ok := others.Lookup(name); ok {
				vars[name] = v
			}
		}
		out, diags := c.evalCty(vars)
		if diags.HasErrors() || out.IsNull() || out.Type() != cty.Bool {
			return false
		}
		if !out.IsKnown() {
			return true
		}
		return out.True()
	}
	return validation.New("check", level, message, pass).Reading(reads...)
}
