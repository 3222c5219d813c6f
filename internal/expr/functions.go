package expr

import (
	"math"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Functions returns the function table available to expressions. Each call
// returns a fresh map.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"abs":    stdlib.AbsoluteFunc,
		"ceil":   stdlib.CeilFunc,
		"floor":  stdlib.FloorFunc,
		"log":    stdlib.LogFunc,
		"pow":    stdlib.PowFunc,
		"min":    stdlib.MinFunc,
		"max":    stdlib.MaxFunc,
		"signum": stdlib.SignumFunc,
		"upper":  stdlib.UpperFunc,
		"lower":  stdlib.LowerFunc,
		"format": stdlib.FormatFunc,

		"pi":    piFunc,
		"sqrt":  unary(math.Sqrt),
		"exp":   unary(math.Exp),
		"ln":    unary(math.Log),
		"log10": unary(math.Log10),
		"sin":   unary(math.Sin),
		"cos":   unary(math.Cos),
		"tan":   unary(math.Tan),
		"atan":  unary(math.Atan),
	}
}

var piFunc = function.New(&function.Spec{
	Type: function.StaticReturnType(cty.Number),
	Impl: func(_ []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.NumberFloatVal(math.Pi), nil
	},
})

// unary wraps a float64 function. A NaN result becomes an unknown number,
// which reads back as NaN.
func unary(fn func(float64) float64) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "num", Type: cty.Number}},
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			f, _ := args[0].AsBigFloat().Float64()
			r := fn(f)
			if math.IsNaN(r) {
				return cty.UnknownVal(cty.Number), nil
			}
			return cty.NumberFloatVal(r), nil
		},
	})
}
