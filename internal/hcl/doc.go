// Package hcl is the HCL implementation of config.Loader. It parses
// calculator template files and translates `calculator` blocks into the
// format-agnostic config.Model.
package hcl
