package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var _ Repo = (*FileRepo)(nil)

// FileRepo persists every scope in one JSON document on disk.
// It is meant for single-user tools like the CLI.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

func NewFileRepo(path string) (*FileRepo, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store folder: %w", err)
	}
	return &FileRepo{path: path}, nil
}

func (r *FileRepo) Get(_ context.Context, scope, key string) (string, bool, error) {
	if err := validate(scope, key); err != nil {
		return "", false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return "", false, err
	}
	value, ok := doc[scope][key]
	return value, ok, nil
}

func (r *FileRepo) Set(_ context.Context, scope, key, value string) error {
	if err := validate(scope, key); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := doc[scope]; !ok {
		doc[scope] = make(map[string]string)
	}
	doc[scope][key] = value
	return r.save(doc)
}

func (r *FileRepo) Delete(_ context.Context, scope string, keys ...string) error {
	if scope == "" {
		return ErrScopeRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	values, ok := doc[scope]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(values, key)
	}
	if len(values) == 0 {
		delete(doc, scope)
	}
	return r.save(doc)
}

func (r *FileRepo) load() (map[string]map[string]string, error) {
	doc := make(map[string]map[string]string)

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return doc, nil
}

// save writes to a temp file first so a crash never leaves half a document.
func (r *FileRepo) save(doc map[string]map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".localstore-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, r.path)
}
