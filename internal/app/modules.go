package app

import (
	"github.com/vk/calcgrid/internal/registry"
	"github.com/vk/calcgrid/modules/ohms_law"
)

// coreModules is the definitive list of calculators compiled into the
// calcgrid binary. HCL templates are loaded alongside them.
var coreModules = []registry.Module{
	&ohms_law.Module{},
}
