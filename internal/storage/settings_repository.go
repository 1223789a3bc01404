package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ocean-haven/booking/internal/storage/models"
)

// SettingsRepository provides key/value access to the settings table.
type SettingsRepository struct {
	BaseRepository
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Get returns the setting stored under key, or nil when unset.
func (r *SettingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	s := &models.Setting{}

	err := r.DB().QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = ?`, key,
	).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying setting %s: %w", key, err)
	}

	return s, nil
}

// Set upserts a setting.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, r.Now())
	if err != nil {
		return fmt.Errorf("saving setting %s: %w", key, err)
	}

	return nil
}
