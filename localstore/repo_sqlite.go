package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

var _ Repo = (*SQLiteRepo)(nil)

// SQLiteRepo stores local storage values in a single sqlite table.
type SQLiteRepo struct {
	conn *sql.DB
}

// NewSQLiteRepo opens (or creates) the database at path and runs migrations.
// Use ":memory:" for a throwaway database.
func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite folder: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive and avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	repo := &SQLiteRepo{conn: conn}
	if err := repo.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepo) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS local_storage (
			scope TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (scope, key)
		)`,
	}

	for _, m := range migrations {
		if _, err := r.conn.Exec(m); err != nil {
			return fmt.Errorf("migrate local_storage: %w", err)
		}
	}
	return nil
}

// Get retrieves a value by scope and key
func (r *SQLiteRepo) Get(ctx context.Context, scope, key string) (string, bool, error) {
	if err := validate(scope, key); err != nil {
		return "", false, err
	}

	var value string
	err := r.conn.QueryRowContext(ctx,
		"SELECT value FROM local_storage WHERE scope = ? AND key = ?",
		scope, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set creates or replaces a value
func (r *SQLiteRepo) Set(ctx context.Context, scope, key, value string) error {
	if err := validate(scope, key); err != nil {
		return err
	}

	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO local_storage (scope, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, scope, key, value)
	return err
}

// Delete removes keys from a scope
func (r *SQLiteRepo) Delete(ctx context.Context, scope string, keys ...string) error {
	if scope == "" {
		return ErrScopeRequired
	}
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, scope)
	for _, key := range keys {
		args = append(args, key)
	}

	_, err := r.conn.ExecContext(ctx,
		"DELETE FROM local_storage WHERE scope = ? AND key IN ("+placeholders+")",
		args...,
	)
	return err
}

// DeleteStale removes every value not written within maxAge.
// Used to drop scopes of browsers that never came back.
func (r *SQLiteRepo) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	result, err := r.conn.ExecContext(ctx,
		"DELETE FROM local_storage WHERE updated_at <= ?",
		time.Now().UTC().Add(-maxAge).Format(time.DateTime),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (r *SQLiteRepo) Close() error {
	return r.conn.Close()
}
