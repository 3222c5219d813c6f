package calc

import (
	"github.com/vk/calcgrid/internal/validation"
)

// ValidateAll runs the validators of every variable.
func (c *Calculator) ValidateAll() {
	c.validateAll()
}

func (c *Calculator) validateAll() {
	for _, v := range c.vars {
		c.validate(v)
	}
}

// Validate runs the validators of one variable and returns its worst result.
func (c *Calculator) Validate(name string) (validation.Result, error) {
	v, err := c.lookupVar(name)
	if err != nil {
		return validation.Result{}, err
	}
	return c.validate(v), nil
}

// validate stores v's worst result and notifies observers when it changed.
func (c *Calculator) validate(v *Variable) validation.Result {
	r := validation.Run(v.validators, v.raw, c)
	if r != v.worst {
		v.worst = r
		c.emitValidation(v)
	}
	return r
}

// revalidateDependants re-runs the validators that read v.
func (c *Calculator) revalidateDependants(v *Variable) {
	for _, id := range v.validationDependants {
		c.validate(c.vars[id])
	}
}
