// Package sqlite implements domain.LocalStorage on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	_ "modernc.org/sqlite"
)

// Ensure LocalStorageRepository implements domain.LocalStorage
var _ domain.LocalStorage = (*LocalStorageRepository)(nil)

// LocalStorageRepository implements domain.LocalStorage using SQLite
type LocalStorageRepository struct {
	db *sql.DB
}

// NewLocalStorageRepository opens the database at path (":memory:" for a
// throwaway store) and creates the storage table.
func NewLocalStorageRepository(ctx context.Context, path string) (*LocalStorageRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", path, err)
	}

	// every pooled connection to :memory: would get its own empty database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: pinging %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS local_storage (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: creating local_storage table: %w", err)
	}

	return &LocalStorageRepository{db: db}, nil
}

// GetItem returns the value stored under key
func (r *LocalStorageRepository) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite: reading %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value
func (r *LocalStorageRepository) SetItem(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("sqlite: writing %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key; removing a missing key is not an error
func (r *LocalStorageRepository) RemoveItem(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: removing %s: %w", key, err)
	}
	return nil
}

// Close closes the database
func (r *LocalStorageRepository) Close() error {
	return r.db.Close()
}
