package registry

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/vk/calcgrid/internal/calc"
)

// Module is the interface that Go calculator modules implement to be
// registered.
type Module interface {
	Register(r *Registry) error
}

// Info is the metadata of a template.
type Info struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	// Source is the template file, or "builtin" for Go modules.
	Source string `json:"source"`
}

// Template declares the variables and groups of one calculator.
type Template struct {
	Info
	Declare func(c *calc.Calculator) error
}

// Registry holds the registered templates of one application instance.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// Register adds a template. Names must be unique.
func (r *Registry) Register(t *Template) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("template must have a name")
	}
	if t.Declare == nil {
		return fmt.Errorf("template %q has no declaration", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, dup := r.templates[t.Name]; dup {
		return fmt.Errorf("calculator %q from %s is already registered from %s", t.Name, t.Source, prev.Source)
	}
	if t.Title == "" {
		t.Title = t.Name
	}
	r.templates[t.Name] = t
	return nil
}

// RegisterModules registers every Go module in order.
func (r *Registry) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the template registered under name.
func (r *Registry) Get(name string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	return t, ok
}

// List returns the metadata of every template, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t.Info)
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Search returns the templates whose title or any tag contains text,
// ignoring case, sorted by name. Empty text matches every template.
func (r *Registry) Search(text string) []Info {
	all := r.List()
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return all
	}
	return slices.DeleteFunc(all, func(info Info) bool {
		return !info.matches(text)
	})
}

func (info Info) matches(lower string) bool {
	if strings.Contains(strings.ToLower(info.Title), lower) {
		return true
	}
	return slices.ContainsFunc(info.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), lower)
	})
}

// New declares a fresh, unbuilt calculator from the named template.
func (r *Registry) New(name string) (*calc.Calculator, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown calculator %q", name)
	}
	c := calc.New(t.Name)
	if err := t.Declare(c); err != nil {
		return nil, fmt.Errorf("declaring calculator %q: %w", name, err)
	}
	return c, nil
}
