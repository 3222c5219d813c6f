// Package config defines the format-agnostic model of calculator templates
// and the Loader interface that produces it.
//
// The Model is the single input of the registry. Concrete loaders, such as
// the HCL one, live in separate packages.
package config
