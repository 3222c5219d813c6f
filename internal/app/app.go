package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/calcgrid/internal/config"
	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
}

// NewApp is the constructor for the main application. Results are written to
// outW and logs to logW. Templates are loaded from the configured path with
// loader; Go modules default to the built-in calculators.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	if err := reg.RegisterModules(modules...); err != nil {
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if cfg.CalculatorsPath != "" {
		if err := reg.LoadTemplates(ctx, loader, cfg.CalculatorsPath); err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
	}

	if err := reg.ValidateRegistry(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
