package plugin

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry maintains the mapping from capability name to its
// transformation. The table is built by Discover from an explicitly
// registered list of implementations and replaced wholesale on each
// reload; lookups are O(1) and listing order is insertion order.
type Registry struct {
	mu    sync.RWMutex
	table map[string]Transformation
	order []string
	log   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		table: make(map[string]Transformation),
		log:   log,
	}
}

// Discover builds a fresh table from the given implementations and
// atomically replaces the current one, returning the number loaded.
//
// A transformation with an ill-formed descriptor is skipped and logged;
// one bad plugin never aborts discovery of the rest. A name collision
// is different: it rejects the whole reload, keeps the prior table and
// returns an error, so a misconfigured build cannot silently shadow a
// capability.
func (r *Registry) Discover(transforms []Transformation) (int, error) {
	table := make(map[string]Transformation, len(transforms))
	order := make([]string, 0, len(transforms))

	for _, t := range transforms {
		desc := t.Descriptor()
		if err := desc.Validate(); err != nil {
			r.log.Warn("skipping plugin with invalid descriptor", "error", err)
			continue
		}
		if _, exists := table[desc.Name]; exists {
			return 0, fmt.Errorf("capability name collision: %q registered twice", desc.Name)
		}
		table[desc.Name] = t
		order = append(order, desc.Name)
		r.log.Debug("loaded plugin", "name", desc.Name, "category", desc.Category)
	}

	r.mu.Lock()
	r.table = table
	r.order = order
	r.mu.Unlock()

	r.log.Info("plugin registry loaded", "count", len(order))
	return len(order), nil
}

// Lookup resolves a capability by name. Absence is not an error;
// callers decide what a miss means.
func (r *Registry) Lookup(name string) (Transformation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.table[name]
	return t, ok
}

// Describe returns the descriptor for a capability, if registered.
func (r *Registry) Describe(name string) (Descriptor, bool) {
	t, ok := r.Lookup(name)
	if !ok {
		return Descriptor{}, false
	}
	return t.Descriptor(), true
}

// List returns all descriptors in insertion order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.table[name].Descriptor())
	}
	return out
}

// ListByCategory groups descriptors by their category. Slices keep
// insertion order so discovery UIs render deterministically.
func (r *Registry) ListByCategory() map[string][]Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]Descriptor)
	for _, name := range r.order {
		desc := r.table[name].Descriptor()
		out[desc.Category] = append(out[desc.Category], desc)
	}
	return out
}

// Len reports the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
