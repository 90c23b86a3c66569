package ingest

import (
	"fmt"
	"sync"
)

// Registry maps a source dialect identifier to its PositionManager.  It is
// populated once at process start and read-mostly afterwards; lookups are
// safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	managers map[string]PositionManager
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		managers: make(map[string]PositionManager),
	}
}

// Register adds a manager under its own dialect identifier, replacing any
// previous registration for that dialect.
func (r *Registry) Register(m PositionManager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[m.Dialect()] = m
}

// Lookup returns the manager for the given dialect, or ErrUnsupportedDialect
// if none is registered.  This fails at job-configuration time, before any
// connection to the source is made.
func (r *Registry) Lookup(dialect string) (PositionManager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
	return m, nil
}

// Dialects returns the registered dialect identifiers.
func (r *Registry) Dialects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.managers))
	for d := range r.managers {
		out = append(out, d)
	}
	return out
}
