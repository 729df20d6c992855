// Package localstore holds the string key/value storage that stands in for a
// browser's local storage. Values are scoped: the web front-end uses one scope
// per browser, the CLI one scope per profile.
package localstore

import (
	"context"
	"errors"
)

var (
	ErrScopeRequired = errors.New("scope is required")
	ErrKeyRequired   = errors.New("key is required")
)

type Repo interface {
	// Get returns the stored value and whether it exists. A missing key is not an error.
	Get(ctx context.Context, scope, key string) (string, bool, error)
	// Set replaces the whole value of key.
	Set(ctx context.Context, scope, key, value string) error
	// Delete removes keys from scope. Missing keys are ignored.
	Delete(ctx context.Context, scope string, keys ...string) error
}

func validate(scope, key string) error {
	if scope == "" {
		return ErrScopeRequired
	}
	if key == "" {
		return ErrKeyRequired
	}
	return nil
}
