// Package validation holds the validation levels and the stateless validator
// library used by calculator variables.
//
// A Validator inspects the current raw value of the variable that owns it
// and, for cross-variable validators, the values of sibling variables it
// declares in Reads. The declared reads are what the calculator uses to
// revalidate a variable when one of those siblings changes.
//
// Results are data. A failing validator never produces a Go error; it yields
// a Result whose Level is Warning or Error, and the owner keeps the worst one.
package validation
