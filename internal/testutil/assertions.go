package testutil

import (
	"sync"

	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/validation"
)

// Recorder is a calc.Observer that keeps every event it receives.
type Recorder struct {
	mu          sync.Mutex
	Values      []calc.ValueEvent
	Validations []calc.ValidationEvent
	Directions  []calc.DirectionEvent
	Reads       []string
}

var (
	_ calc.Observer     = (*Recorder)(nil)
	_ calc.ReadObserver = (*Recorder)(nil)
)

func (r *Recorder) ValueChanged(e calc.ValueEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Values = append(r.Values, e)
}

func (r *Recorder) ValidationChanged(e calc.ValidationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Validations = append(r.Validations, e)
}

func (r *Recorder) DirectionChanged(e calc.DirectionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Directions = append(r.Directions, e)
}

func (r *Recorder) ValueRead(_, variable string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reads = append(r.Reads, variable)
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Values, r.Validations, r.Directions, r.Reads = nil, nil, nil, nil
}

// ValuesOf returns the value events recorded for one variable.
func (r *Recorder) ValuesOf(variable string) []calc.ValueEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []calc.ValueEvent
	for _, e := range r.Values {
		if e.Variable == variable {
			out = append(out, e)
		}
	}
	return out
}

// LastValidation returns the most recent validation result recorded for a
// variable.
func (r *Recorder) LastValidation(variable string) (validation.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Validations) - 1; i >= 0; i-- {
		if r.Validations[i].Variable == variable {
			return r.Validations[i].Result, true
		}
	}
	return validation.Result{}, false
}

// DirectionOf returns the most recent direction recorded for a variable.
func (r *Recorder) DirectionOf(variable string) (calc.Direction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Directions) - 1; i >= 0; i-- {
		if r.Directions[i].Variable == variable {
			return r.Directions[i].Direction, true
		}
	}
	return calc.Input, false
}
