package adapter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/reeveops/reeve/internal/logger"
)

// Registry manages adapter registration and lookup. Every consumer receives
// its own instance; there is no package-level registry and no init-time
// side-channel registration.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	metadata map[string]Metadata
	logger   *logger.Logger
}

// NewRegistry returns a new registry instance.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		metadata: make(map[string]Metadata),
		logger:   log,
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return fmt.Errorf("adapter is nil")
	}

	meta := a.Metadata()
	if err := meta.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[meta.Name]; exists {
		return ErrAlreadyRegistered{Name: meta.Name}
	}

	r.adapters[meta.Name] = a
	r.metadata[meta.Name] = meta

	if r.logger != nil {
		r.logger.WithFields(map[string]any{
			"adapter": meta.Name,
			"version": meta.Version,
		}).Debug("adapter registered")
	}
	return nil
}

// InitializeAdapters runs Init on every adapter that wants registry access.
func (r *Registry) InitializeAdapters() error {
	r.mu.RLock()
	targets := make([]Adapter, 0, len(r.adapters))
	names := make([]string, 0, len(r.adapters))
	for name, a := range r.adapters {
		targets = append(targets, a)
		names = append(names, name)
	}
	r.mu.RUnlock()

	for i, a := range targets {
		if initializer, ok := a.(Initializer); ok {
			if err := initializer.Init(r); err != nil {
				return fmt.Errorf("init adapter '%s': %w", names[i], err)
			}
		}
	}
	return nil
}

// Get retrieves an adapter by name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.adapters[name]
	if !exists {
		return nil, ErrAdapterNotFound{Name: name}
	}
	return a, nil
}

// Lookup returns the metadata for a registered adapter.
func (r *Registry) Lookup(name string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.metadata[name]
	return meta, ok
}

// List returns the registered adapter names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
