package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// recordRepository implements domain.RecordStore on SQLite
type recordRepository struct {
	db *DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *DB) domain.RecordStore {
	return &recordRepository{db: db}
}

// Load retrieves the document stored under key
func (r *recordRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", key, domain.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to load record %s: %w", key, err)
	}
	return []byte(value), nil
}

// Save upserts the document stored under key
func (r *recordRepository) Save(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO records (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, string(value), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save record %s: %w", key, err)
	}
	return nil
}
