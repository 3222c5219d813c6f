// Package registry is the catalogue of calculator templates.
//
// Templates come from two sources: Go modules compiled into the binary,
// which register themselves through the Module interface, and template
// files translated into a config.Model by a loader. Either way a template
// only declares variables and groups; each call to New returns a fresh,
// unbuilt calculator.
//
// ValidateRegistry builds every template once at startup so structural
// problems, such as an equation reading an unknown variable, surface before
// any session opens.
package registry
