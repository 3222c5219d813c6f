// Package session keeps the calculators opened by clients. Each session owns
// one built calculator and serializes every operation on it, so the session
// is the single writer of its calculator no matter how many clients edit it.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/value"
)

// ErrNotFound is returned for unknown or closed session IDs.
var ErrNotFound = errors.New("session not found")

// Session is one open calculator.
type Session struct {
	id      uuid.UUID
	created time.Time

	mu   sync.Mutex
	calc *calc.Calculator
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Created returns when the session was opened.
func (s *Session) Created() time.Time { return s.created }

// Calculator returns the name of the calculator.
func (s *Session) Calculator() string { return s.calc.Name() }

// Do runs fn with exclusive access to the calculator.
func (s *Session) Do(fn func(c *calc.Calculator) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.calc)
}

// Edit sets an input from user text. Numbers are read in the variable's
// active display unit; text that does not parse becomes NaN and is reported
// by validation. Empty input clears a number to NaN.
func (s *Session) Edit(ctx context.Context, name, input string) error {
	return s.Do(func(c *calc.Calculator) error {
		v, ok := c.Variable(name)
		if !ok {
			return fmt.Errorf("%w: %q", calc.ErrUnknownVariable, name)
		}
		next := value.Parse(v.Kind(), strings.TrimSpace(input))
		if u := v.Unit(); u != nil && next.IsNumber() {
			next = value.Number(u.FromDisplay(next.Float()))
		}
		return c.SetValue(ctx, name, next)
	})
}

// SetValue sets an input to a raw value.
func (s *Session) SetValue(ctx context.Context, name string, v value.Value) error {
	return s.Do(func(c *calc.Calculator) error { return c.SetValue(ctx, name, v) })
}

// SelectOutput makes name the output of group.
func (s *Session) SelectOutput(ctx context.Context, group, name string) error {
	return s.Do(func(c *calc.Calculator) error { return c.SelectOutput(ctx, group, name) })
}

// SetUnit changes a variable's display unit.
func (s *Session) SetUnit(name, unit string) error {
	return s.Do(func(c *calc.Calculator) error { return c.SetUnit(name, unit) })
}

// Snapshot captures the calculator state.
func (s *Session) Snapshot() calc.Snapshot {
	var snap calc.Snapshot
	_ = s.Do(func(c *calc.Calculator) error {
		snap = c.Snapshot()
		return nil
	})
	return snap
}

// State renders the calculator for clients.
func (s *Session) State() State {
	var st State
	_ = s.Do(func(c *calc.Calculator) error {
		st = NewState(c)
		return nil
	})
	st.ID = s.id.String()
	return st
}

// State is a client view of a calculator.
type State struct {
	ID         string          `json:"id,omitempty"`
	Calculator string          `json:"calculator"`
	Level      string          `json:"level"`
	Variables  []VariableState `json:"variables"`
	Groups     []GroupState    `json:"groups,omitempty"`
}

// VariableState is a client view of one variable. Value is nil for NaN.
type VariableState struct {
	Name      string   `json:"name"`
	Value     any      `json:"value"`
	Formatted string   `json:"formatted"`
	Unit      string   `json:"unit,omitempty"`
	Units     []string `json:"units,omitempty"`
	Direction string   `json:"direction"`
	Group     string   `json:"group,omitempty"`
	Level     string   `json:"level"`
	Message   string   `json:"message,omitempty"`
	Help      string   `json:"help,omitempty"`
	Options   []string `json:"options,omitempty"`
	Hidden    bool     `json:"hidden,omitempty"`
}

// GroupState is a client view of an equation group.
type GroupState struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
	Output  string   `json:"output"`
}

// NewState renders c. The caller must hold exclusive access to c.
func NewState(c *calc.Calculator) State {
	st := State{Calculator: c.Name(), Level: c.Worst().Level.String()}
	for _, v := range c.Variables() {
		vs := VariableState{
			Name:      v.Name(),
			Value:     JSONValue(v.Value()),
			Formatted: v.Formatted(),
			Direction: v.Direction().String(),
			Group:     v.Group(),
			Level:     v.Worst().Level.String(),
			Message:   v.Worst().Message,
			Help:      v.Help(),
			Options:   v.Options(),
			Hidden:    v.Hidden(),
		}
		if u := v.Unit(); u != nil {
			vs.Unit = u.Name
		}
		for _, u := range v.Units() {
			vs.Units = append(vs.Units, u.Name)
		}
		st.Variables = append(st.Variables, vs)
	}
	for _, g := range c.Groups() {
		st.Groups = append(st.Groups, GroupState{Name: g.Name(), Members: g.Members(), Output: g.Selected()})
	}
	return st
}

// JSONValue converts v for JSON encoding: NaN and infinities become nil,
// which encoding/json cannot represent otherwise.
func JSONValue(v value.Value) any {
	if v.Kind() == value.KindText {
		return v.Str()
	}
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// ParseAssignment splits "name=value".
func ParseAssignment(s string) (string, string, error) {
	name, val, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid assignment %q: expected name=value", s)
	}
	return name, strings.TrimSpace(val), nil
}
