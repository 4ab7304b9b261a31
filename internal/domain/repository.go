package domain

import "context"

// CatalogKey is the record key of the stock catalog
const CatalogKey = "catalog"

// AccountKey returns the record key of the account owned by ownerID
func AccountKey(ownerID string) string {
	return "account:" + ownerID
}

// RecordStore is the persistence gateway: an opaque keyed document store.
// The core does not assume any storage medium behind it.
type RecordStore interface {
	// Load returns the document saved under key, or ErrRecordNotFound
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the document stored under key
	Save(ctx context.Context, key string, value []byte) error
}
