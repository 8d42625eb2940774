package adnet

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds the configured set of ad network adapters. Lookups by
// platform name are case-insensitive, and Adapters returns the networks in
// registration order — winner selection relies on that order to break
// price ties deterministically.
//
// The registry is built once at startup and read by concurrent auctions;
// it is an explicit dependency rather than a process-wide singleton so
// tests can construct isolated configurations.
type Registry struct {
	mu      sync.RWMutex
	ordered []Adapter
	byName  map[string]Adapter
}

// NewRegistry constructs a Registry containing the given adapters, in order.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{byName: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends an adapter. Platform names must be unique ignoring case.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return fmt.Errorf("nil adapter")
	}
	name := strings.ToLower(a.Platform())
	if name == "" {
		return fmt.Errorf("adapter has empty platform name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("platform %q already registered", a.Platform())
	}
	r.byName[name] = a
	r.ordered = append(r.ordered, a)
	return nil
}

// Adapters returns all registered adapters in registration order. The
// returned slice is a copy; callers may not mutate registry state.
func (r *Registry) Adapters() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Lookup finds an adapter by platform name, ignoring case.
func (r *Registry) Lookup(platform string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[strings.ToLower(platform)]
	return a, ok
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}
