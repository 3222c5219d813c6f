package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/calcgrid/internal/config"
	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/fsutil"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL template loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and translates the calculator
// blocks it finds. Paths that do not exist are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	seen := make(map[string]string)
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range root.Calculators {
			if prev, dup := seen[block.Name]; dup {
				return nil, fmt.Errorf("calculator %q in %s is already defined in %s", block.Name, file, prev)
			}
			seen[block.Name] = file

			def, err := translateCalculator(ctx, block)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			def.Source = file
			model.Calculators = append(model.Calculators, def)
		}
	}

	logger.Debug("HCL loading complete.", "calculators", len(model.Calculators))
	return model, nil
}
