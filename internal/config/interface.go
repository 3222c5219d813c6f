package config

import "context"

// Loader is the interface for a format-specific template loader.
type Loader interface {
	// Load reads every template found under the given paths and translates
	// them into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
