package registry

import (
	"context"
	"fmt"

	"github.com/vk/calcgrid/internal/config"
	"github.com/vk/calcgrid/internal/ctxlog"
)

// LoadTemplates reads template files with loader and registers every
// calculator found.
func (r *Registry) LoadTemplates(ctx context.Context, loader config.Loader, paths ...string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading templates...", "paths", paths)

	model, err := loader.Load(ctx, paths...)
	if err != nil {
		return err
	}
	if err := r.PopulateFromModel(model); err != nil {
		return err
	}

	if len(model.Calculators) == 0 {
		logger.Warn("No calculator templates found.", "paths", paths)
		return nil
	}
	logger.Info("Templates loaded.", "calculators", len(model.Calculators))
	return nil
}

// PopulateFromModel registers a template for every calculator of model.
func (r *Registry) PopulateFromModel(model *config.Model) error {
	for _, def := range model.Calculators {
		t, err := FromDefinition(def)
		if err != nil {
			return fmt.Errorf("%s: %w", def.Source, err)
		}
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
