package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) domain.RecordStore {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRecordRepository(db)
}

func TestRecordRepository_LoadMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Load(context.Background(), domain.CatalogKey)

	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestRecordRepository_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	key := domain.AccountKey("user-2")

	require.NoError(t, repo.Save(ctx, key, []byte(`{"v":1}`)))
	require.NoError(t, repo.Save(ctx, key, []byte(`{"v":2}`)))

	got, err := repo.Load(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestRecordRepository_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, domain.AccountKey("a"), []byte(`"a"`)))
	require.NoError(t, repo.Save(ctx, domain.AccountKey("b"), []byte(`"b"`)))

	a, err := repo.Load(ctx, domain.AccountKey("a"))
	require.NoError(t, err)
	assert.Equal(t, `"a"`, string(a))
}
