package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure LocalStorageRepository implements domain.LocalStorage
var _ domain.LocalStorage = (*LocalStorageRepository)(nil)

// LocalStorageRepository implements domain.LocalStorage using PostgreSQL
type LocalStorageRepository struct {
	pool *pgxpool.Pool
}

// NewLocalStorageRepository creates a new LocalStorageRepository and makes sure
// its table exists
func NewLocalStorageRepository(ctx context.Context, pool *pgxpool.Pool) (*LocalStorageRepository, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS local_storage (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating local_storage table: %w", err)
	}
	return &LocalStorageRepository{pool: pool}, nil
}

// GetItem returns the value stored under key
func (r *LocalStorageRepository) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM local_storage WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: reading %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value
func (r *LocalStorageRepository) SetItem(ctx context.Context, key, value string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO local_storage (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("postgres: writing %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key; removing a missing key is not an error
func (r *LocalStorageRepository) RemoveItem(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM local_storage WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres: removing %s: %w", key, err)
	}
	return nil
}
