package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/ctxlog"
)

// Templates declares fresh calculators by name.
type Templates interface {
	New(name string) (*calc.Calculator, error)
}

// ObserverFactory returns the observer subscribed to a new session, or nil.
type ObserverFactory func(id uuid.UUID) calc.Observer

// Option configures a Manager.
type Option func(*Manager)

// WithObservers subscribes the observer returned by f to every new session.
func WithObservers(f ObserverFactory) Option {
	return func(m *Manager) { m.observers = append(m.observers, f) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns the open sessions.
type Manager struct {
	templates Templates
	observers []ObserverFactory
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a session manager.
func NewManager(templates Templates, opts ...Option) *Manager {
	m := &Manager{
		templates: templates,
		now:       time.Now,
		sessions:  make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open declares and builds the named calculator, restoring snap when given.
func (m *Manager) Open(ctx context.Context, name string, snap *calc.Snapshot) (*Session, error) {
	c, err := m.templates.New(name)
	if err != nil {
		return nil, err
	}
	s := &Session{id: uuid.New(), created: m.now(), calc: c}
	ctx = ctxlog.With(ctx, "session", s.id.String())

	for _, f := range m.observers {
		if o := f(s.id); o != nil {
			c.Subscribe(o)
		}
	}
	var opts []calc.BuildOption
	if snap != nil {
		opts = append(opts, calc.WithSnapshot(*snap))
	}
	if err := c.Build(ctx, opts...); err != nil {
		return nil, fmt.Errorf("opening %q: %w", name, err)
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	ctxlog.FromContext(ctx).Info("Session opened.", "calculator", name)
	return s, nil
}

// Restore opens one session per snapshot, in order. Snapshots that cannot
// be opened are reported together; the others stay open.
func (m *Manager) Restore(ctx context.Context, snaps []calc.Snapshot) ([]*Session, error) {
	var (
		opened []*Session
		errs   []error
	)
	for i := range snaps {
		s, err := m.Open(ctx, snaps[i].Calculator, &snaps[i])
		if err != nil {
			ctxlog.FromContext(ctx).Warn("Snapshot not restored.", "calculator", snaps[i].Calculator, "error", err)
			errs = append(errs, err)
			continue
		}
		opened = append(opened, s)
	}
	return opened, errors.Join(errs...)
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s, nil
}

// Close forgets a session.
func (m *Manager) Close(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()
	ctxlog.FromContext(ctx).Info("Session closed.", "session", id, "calculator", s.Calculator())
	return nil
}

// List returns the open sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Session) int {
		if c := a.created.Compare(b.created); c != 0 {
			return c
		}
		return slices.Compare(a.id[:], b.id[:])
	})
	return out
}

// Snapshots captures every open session, oldest first.
func (m *Manager) Snapshots() []calc.Snapshot {
	sessions := m.List()
	out := make([]calc.Snapshot, len(sessions))
	for i, s := range sessions {
		out[i] = s.Snapshot()
	}
	return out
}
