// Package value defines the raw, unit-free scalar held by a calculator
// variable, and its conversions to and from cty values used by the
// expression evaluator.
package value

import (
	"fmt"
	"math"
	"strconv"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Kind is the kind of scalar a Value holds.
type Kind int

const (
	// KindNumber is a float64. NaN means "not a number", e.g. an empty or
	// unparsable text field.
	KindNumber Kind = iota
	// KindText is a string, used by choice variables.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is an immutable raw scalar. The zero Value is the number 0.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Text returns a text Value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// NaN returns the numeric "not a number" Value.
func NaN() Value {
	return Number(math.NaN())
}

// Kind reports the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric value, or NaN for text values.
func (v Value) Float() float64 {
	if v.kind != KindNumber {
		return math.NaN()
	}
	return v.num
}

// Str returns the text value, or the formatted number for numeric values.
func (v Value) Str() string {
	if v.kind == KindText {
		return v.text
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// IsNumber reports whether v is numeric and not NaN. Infinities count as
// numbers.
func (v Value) IsNumber() bool {
	return v.kind == KindNumber && !math.IsNaN(v.num)
}

// Equal reports whether two values are identical. Two NaNs are equal here,
// so that a NaN output recomputed to NaN is not reported as a change.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindText {
		return v.text == o.text
	}
	if math.IsNaN(v.num) && math.IsNaN(o.num) {
		return true
	}
	return v.num == o.num
}

func (v Value) String() string {
	return v.Str()
}

// Parse converts user text into a Value of the given kind. Numeric text that
// fails to parse becomes NaN rather than an error, mirroring a text field
// holding garbage.
func Parse(kind Kind, s string) Value {
	if kind == KindText {
		return Text(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NaN()
	}
	return Number(f)
}

// ToCty converts v into a cty value. NaN has no cty representation and maps
// to an unknown number, so expressions reading it evaluate to unknown.
func ToCty(v Value) cty.Value {
	if v.kind == KindText {
		return cty.StringVal(v.text)
	}
	if math.IsNaN(v.num) {
		return cty.UnknownVal(cty.Number)
	}
	return cty.NumberFloatVal(v.num)
}

// FromCty converts a cty result into a Value. Unknown or null numbers become
// NaN.
func FromCty(cv cty.Value) (Value, error) {
	if !cv.IsKnown() || cv.IsNull() {
		if cv.Type() == cty.String {
			return Text(""), nil
		}
		return NaN(), nil
	}
	switch cv.Type() {
	case cty.Number:
		var f float64
		if err := gocty.FromCtyValue(cv, &f); err != nil {
			return NaN(), fmt.Errorf("converting result: %w", err)
		}
		return Number(f), nil
	case cty.String:
		return Text(cv.AsString()), nil
	case cty.Bool:
		if cv.True() {
			return Number(1), nil
		}
		return Number(0), nil
	default:
		return NaN(), fmt.Errorf("unsupported result type %s", cv.Type().FriendlyName())
	}
}
