// Package returner posts finished job envelopes to external backends.
// Returners are fire-and-forget from the run's point of view: a broken
// backend is logged and reported, but never changes the outcome of the
// job that produced the envelope.
package returner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/reeveops/reeve/internal/history"
	"github.com/reeveops/reeve/internal/logger"
)

// Returner posts one finished job envelope to an external backend.
type Returner interface {
	// Name is the registry key and the secure-config namespace suffix
	// the returner is configured under.
	Name() string

	Return(ctx context.Context, rec *history.Record) error

	Close() error
}

// Registry manages returner registration and lookup. Every consumer
// receives its own instance; there is no package-level registry.
type Registry struct {
	mu        sync.RWMutex
	returners map[string]Returner
	logger    *logger.Logger
}

// NewRegistry returns a new registry instance.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		returners: make(map[string]Returner),
		logger:    log,
	}
}

// Register adds a returner to the registry.
func (r *Registry) Register(ret Returner) error {
	if ret == nil {
		return fmt.Errorf("returner is nil")
	}
	name := ret.Name()
	if name == "" {
		return fmt.Errorf("returner has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.returners[name]; exists {
		return ErrReturnerAlreadyRegistered{Name: name}
	}
	r.returners[name] = ret

	if r.logger != nil {
		r.logger.WithFields(map[string]any{"returner": name}).Debug("returner registered")
	}
	return nil
}

// Get retrieves a returner by name.
func (r *Registry) Get(name string) (Returner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ret, exists := r.returners[name]
	if !exists {
		return nil, ErrReturnerNotFound{Name: name}
	}
	return ret, nil
}

// List returns the registered returner names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.returners))
	for name := range r.returners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReturnAll posts the record to every registered returner. Failures
// are logged and reported together; one broken backend never stops
// the others from receiving the envelope.
func (r *Registry) ReturnAll(ctx context.Context, rec *history.Record) error {
	var failed []string
	for _, name := range r.List() {
		ret, err := r.Get(name)
		if err != nil {
			continue
		}
		if err := ret.Return(ctx, rec); err != nil {
			if r.logger != nil {
				r.logger.WithFields(map[string]any{
					"returner": name,
					"jid":      rec.JID,
				}).Error(err, "returner failed")
			}
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("returners failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

// CloseAll releases every registered returner's resources.
func (r *Registry) CloseAll() error {
	var failed []string
	for _, name := range r.List() {
		ret, err := r.Get(name)
		if err != nil {
			continue
		}
		if err := ret.Close(); err != nil {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("close returners: %s", strings.Join(failed, ", "))
	}
	return nil
}
