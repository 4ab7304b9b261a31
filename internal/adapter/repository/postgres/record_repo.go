package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// recordRepository implements domain.RecordStore
type recordRepository struct {
	db *DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *DB) domain.RecordStore {
	return &recordRepository{db: db}
}

// Load retrieves the document stored under key
func (r *recordRepository) Load(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value
		FROM records
		WHERE key = $1
	`

	var value []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", key, domain.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to load record %s: %w", key, err)
	}

	return value, nil
}

// Save upserts the document stored under key
func (r *recordRepository) Save(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO records (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("failed to save record %s: %w", key, err)
	}

	return nil
}
