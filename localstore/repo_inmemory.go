package localstore

import (
	"context"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	mu     sync.RWMutex
	scopes map[string]map[string]string // scope -> key -> value
}

// NewInMemoryRepo creates a new in-memory local storage repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		scopes: make(map[string]map[string]string),
	}
}

// Get retrieves a value by scope and key
func (r *InMemoryRepo) Get(_ context.Context, scope, key string) (string, bool, error) {
	if err := validate(scope, key); err != nil {
		return "", false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.scopes[scope][key]
	return value, ok, nil
}

// Set creates or replaces a value
func (r *InMemoryRepo) Set(_ context.Context, scope, key, value string) error {
	if err := validate(scope, key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Initialize scope map if it doesn't exist
	if _, ok := r.scopes[scope]; !ok {
		r.scopes[scope] = make(map[string]string)
	}
	r.scopes[scope][key] = value
	return nil
}

// Delete removes keys from a scope
func (r *InMemoryRepo) Delete(_ context.Context, scope string, keys ...string) error {
	if scope == "" {
		return ErrScopeRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	values, ok := r.scopes[scope]
	if !ok {
		return nil // Already doesn't exist, no error
	}

	for _, key := range keys {
		delete(values, key)
	}

	// Clean up empty scope map
	if len(values) == 0 {
		delete(r.scopes, scope)
	}

	return nil
}
