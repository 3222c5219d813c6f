package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/validation"
)

// ValidateRegistry declares and builds every template once and reports all
// templates that fail.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, info := range r.List() {
		c, err := r.New(info.Name)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if err := c.Build(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("calculator %q (%s): %v", info.Name, info.Source, err))
			continue
		}
		if w := c.Worst(); w.Level != validation.Ok {
			logger.Debug("Template defaults do not validate cleanly.", "calculator", info.Name, "level", w.Level.String(), "message", w.Message)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
