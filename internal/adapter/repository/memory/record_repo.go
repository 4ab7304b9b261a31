package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// RecordRepository is an in-process domain.RecordStore
type RecordRepository struct {
	mu      sync.RWMutex
	records map[string][]byte
	saves   int
}

// NewRecordRepository creates an empty in-memory store
func NewRecordRepository() *RecordRepository {
	return &RecordRepository{records: make(map[string][]byte)}
}

// Load returns a copy of the document stored under key
func (r *RecordRepository) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.records[key]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", key, domain.ErrRecordNotFound)
	}
	return append([]byte(nil), value...), nil
}

// Save stores a copy of value under key
func (r *RecordRepository) Save(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[key] = append([]byte(nil), value...)
	r.saves++
	return nil
}

// Saves returns how many times Save succeeded
func (r *RecordRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
