// Package units converts between a variable's raw SI value and its display
// value in one of several alternate units, and formats display values to a
// fixed number of significant digits.
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit is one display representation of a quantity. The display value is
// raw / Multiplier.
type Unit struct {
	Name       string
	Multiplier float64
	Preferred  bool
}

// Set is the ordered list of units a variable can be displayed in.
type Set []Unit

// Default returns the index of the preferred unit, or 0 when none is marked.
// An empty set returns -1.
func (s Set) Default() int {
	if len(s) == 0 {
		return -1
	}
	for i, u := range s {
		if u.Preferred {
			return i
		}
	}
	return 0
}

// Index returns the position of the unit with the given name.
func (s Set) Index(name string) (int, bool) {
	for i, u := range s {
		if u.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Validate checks that the set has unique names, positive multipliers and at
// most one preferred unit.
func (s Set) Validate() error {
	seen := make(map[string]struct{}, len(s))
	preferred := 0
	for _, u := range s {
		if _, dup := seen[u.Name]; dup {
			return fmt.Errorf("duplicate unit %q", u.Name)
		}
		seen[u.Name] = struct{}{}
		if !(u.Multiplier > 0) || math.IsInf(u.Multiplier, 0) {
			return fmt.Errorf("unit %q has invalid multiplier %g", u.Name, u.Multiplier)
		}
		if u.Preferred {
			preferred++
		}
	}
	if preferred > 1 {
		return fmt.Errorf("%d units marked preferred, at most one allowed", preferred)
	}
	return nil
}

// ToDisplay converts a raw value into the unit's display value.
func (u Unit) ToDisplay(raw float64) float64 {
	if u.Multiplier == 0 {
		return raw
	}
	return raw / u.Multiplier
}

// FromDisplay converts a display value back into the raw value.
func (u Unit) FromDisplay(display float64) float64 {
	if u.Multiplier == 0 {
		return display
	}
	return display * u.Multiplier
}

// RoundSignificant rounds f to digits significant digits. digits <= 0
// leaves f untouched.
func RoundSignificant(f float64, digits int) float64 {
	if digits <= 0 || f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', digits, 64), 64)
	if err != nil {
		return f
	}
	return rounded
}

// Format renders f to digits significant digits without an exponent for
// ordinary magnitudes, e.g. Format(159.1549, 4) == "159.2".
func Format(f float64, digits int) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "∞"
	case math.IsInf(f, -1):
		return "-∞"
	}
	if digits <= 0 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	r := RoundSignificant(f, digits)
	if r != 0 {
		if exp := decimalExponent(r); exp < -4 || exp >= 15 {
			return strconv.FormatFloat(r, 'g', digits, 64)
		}
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// decimalExponent returns the power of ten of f's leading digit. It reads the
// exponent from the 'e' formatting so exact powers of ten are not misjudged
// by floating point log10.
func decimalExponent(f float64) int {
	s := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(s[strings.IndexByte(s, 'e')+1:])
	if err != nil {
		return 0
	}
	return exp
}

var siPrefixes = []struct {
	exp    int
	prefix string
}{
	{-15, "f"}, {-12, "p"}, {-9, "n"}, {-6, "u"}, {-3, "m"},
	{0, ""}, {3, "k"}, {6, "M"}, {9, "G"}, {12, "T"},
}

// FormatEngineering renders f with an SI prefix so the mantissa falls in
// [1, 1000), e.g. FormatEngineering(0.000001, 4) == "1u".
func FormatEngineering(f float64, digits int) string {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return Format(f, digits)
	}
	r := RoundSignificant(f, digits)
	exp := decimalExponent(r)
	if exp < 0 {
		exp -= 2
	}
	exp = exp / 3 * 3
	exp = max(siPrefixes[0].exp, min(siPrefixes[len(siPrefixes)-1].exp, exp))
	for _, p := range siPrefixes {
		if p.exp == exp {
			return Format(r/math.Pow10(exp), digits) + p.prefix
		}
	}
	return Format(r, digits)
}

// Display formats a raw value in the given unit, appending the unit name.
func Display(raw float64, u *Unit, digits int, engineering bool) string {
	var (
		shown = raw
		name  string
	)
	if u != nil {
		shown = u.ToDisplay(raw)
		name = u.Name
	}
	var s string
	if engineering {
		s = FormatEngineering(shown, digits)
	} else {
		s = Format(shown, digits)
	}
	if s == "" || name == "" {
		return s
	}
	return strings.TrimSpace(s + " " + name)
}
