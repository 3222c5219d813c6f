// Package expr compiles HCL expressions into calculator equations and
// validator predicates. An expression reads sibling variables by bare name,
// e.g. `1 / (2 * pi() * r * c)`, and may call the numeric functions in
// Functions.
package expr

import (
	"slices"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Container gathers expressions and reports the variables they read and the
// functions they call.
type Container struct {
	analyzeOnce sync.Once

	mu          sync.RWMutex
	expressions []hcl.Expression

	references      []string
	calledFunctions []string
}

// NewContainer creates a new, empty expression container.
func NewContainer(exprs ...hcl.Expression) *Container {
	c := &Container{}
	c.Add(exprs...)
	return c
}

// Add appends expressions, ignoring nils. Results are recomputed on the next
// read.
func (c *Container) Add(exprs ...hcl.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.analyzeOnce = sync.Once{}
	for _, e := range exprs {
		if e != nil {
			c.expressions = append(c.expressions, e)
		}
	}
}

func (c *Container) analyze() {
	c.analyzeOnce.Do(func() {
		c.mu.RLock()
		refs, funcs := extract(c.expressions...)
		c.mu.RUnlock()

		c.mu.Lock()
		c.references = refs
		c.calledFunctions = funcs
		c.mu.Unlock()
	})
}

// References returns the sorted, unique root names of every variable
// traversal, so `a.b + c` yields [a c].
func (c *Container) References() []string {
	c.analyze()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.references)
}

// CalledFunctions returns the sorted, unique names of called functions.
func (c *Container) CalledFunctions() []string {
	c.analyze()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.calledFunctions)
}

func extract(exprs ...hcl.Expression) ([]string, []string) {
	var refs, funcs []string
	for _, e := range exprs {
		for _, t := range e.Variables() {
			refs = append(refs, t.RootName())
		}
		if syntaxExpr, ok := e.(hclsyntax.Expression); ok {
			funcs = walkForFunctions(syntaxExpr, funcs)
		}
	}
	slices.Sort(refs)
	slices.Sort(funcs)
	return slices.Compact(refs), slices.Compact(funcs)
}

// walkForFunctions collects the names of function calls, which Variables()
// does not report.
func walkForFunctions(e hclsyntax.Expression, funcs []string) []string {
	if e == nil {
		return funcs
	}
	switch e := e.(type) {
	case *hclsyntax.FunctionCallExpr:
		funcs = append(funcs, e.Name)
		for _, arg := range e.Args {
			funcs = walkForFunctions(arg, funcs)
		}
	case *hclsyntax.BinaryOpExpr:
		funcs = walkForFunctions(e.LHS, funcs)
		funcs = walkForFunctions(e.RHS, funcs)
	case *hclsyntax.ConditionalExpr:
		funcs = walkForFunctions(e.Condition, funcs)
		funcs = walkForFunctions(e.TrueResult, funcs)
		funcs = walkForFunctions(e.FalseResult, funcs)
	case *hclsyntax.UnaryOpExpr:
		funcs = walkForFunctions(e.Val, funcs)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			funcs = walkForFunctions(part, funcs)
		}
	case *hclsyntax.TemplateWrapExpr:
		funcs = walkForFunctions(e.Wrapped, funcs)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			funcs = walkForFunctions(item, funcs)
		}
	case *hclsyntax.IndexExpr:
		funcs = walkForFunctions(e.Collection, funcs)
		funcs = walkForFunctions(e.Key, funcs)
	case *hclsyntax.ParenthesesExpr:
		funcs = walkForFunctions(e.Expression, funcs)
	}
	return funcs
}
