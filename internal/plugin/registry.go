package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicatePlugin is returned when registering an id that is
	// already taken. First registration wins.
	ErrDuplicatePlugin = errors.New("plugin id already registered")

	// ErrUnknownPlugin is returned when instantiating an id nobody
	// registered.
	ErrUnknownPlugin = errors.New("unknown plugin id")
)

// Factory produces a fresh, unstarted plugin instance.
type Factory func() Plugin

// Meta is the introspection view of a registered plugin, obtained
// without starting a live connection.
type Meta struct {
	Info          Info           `json:"info"`
	Capabilities  Capabilities   `json:"capabilities"`
	ConfigOptions []ConfigOption `json:"configOptions,omitempty"`
}

// Registry maps plugin ids to factories. It is constructed and injected
// by the composition root rather than living as package-global state.
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under id. Registering an id twice fails with
// ErrDuplicatePlugin; the original factory stays in place.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return errors.New("plugin id cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("plugin %s: factory cannot be nil", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, id)
	}
	r.factories[id] = factory
	return nil
}

// New returns a fresh instance for id, invoking the factory on every
// call. Callers must not assume instance identity is stable across
// calls.
func (r *Registry) New(id string) (Plugin, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, id)
	}
	return factory(), nil
}

// IDs returns the registered plugin ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ListMeta returns metadata for every registered plugin by building a
// throwaway instance per id and discarding it. Construction is required
// to be side-effect free, so this is cheap.
func (r *Registry) ListMeta() []Meta {
	r.mu.RLock()
	factories := make(map[string]Factory, len(r.factories))
	for id, f := range r.factories {
		factories[id] = f
	}
	r.mu.RUnlock()

	ids := make([]string, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	metas := make([]Meta, 0, len(ids))
	for _, id := range ids {
		p := factories[id]()
		metas = append(metas, Meta{
			Info:          p.Info(),
			Capabilities:  p.Capabilities(),
			ConfigOptions: p.ConfigOptions(),
		})
	}
	return metas
}

// Clear removes all registrations. Composition roots and tests only.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]Factory)
}
