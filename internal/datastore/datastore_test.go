package datastore

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
)

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "nested", "cardoc.db")

	store, ok := New(settings).(*SQLiteStore)
	require.True(t, ok)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(id, user string, at time.Time) *DiagnosticRecord {
	return &DiagnosticRecord{
		ID:            id,
		UserID:        user,
		DiagnosisType: TypeEngineSound,
		Status:        StatusCompleted,
		UrgencyLevel:  "soon",
		Confidence:    0.62,
		Result:        `{"status":"completed"}`,
		CreatedAt:     at,
	}
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	assert.Nil(t, New(settings))

	settings.Output.MySQL.Enabled = true
	assert.IsType(t, &MySQLStore{}, New(settings))
}

func TestSaveAndGet(t *testing.T) {
	t.Parallel()
	store := openSQLite(t)
	ctx := t.Context()

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, record("d-1", "u-1", at)))

	got, err := store.Get(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, TypeEngineSound, got.DiagnosisType)
	assert.InDelta(t, 0.62, got.Confidence, 1e-9)
	assert.JSONEq(t, `{"status":"completed"}`, got.Result)
	assert.True(t, at.Equal(got.CreatedAt))
}

func TestSaveValidation(t *testing.T) {
	t.Parallel()
	store := openSQLite(t)

	err := store.Save(t.Context(), record("", "u-1", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	err = store.Save(t.Context(), record("d-1", "", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestSaveDefaultsCreatedAt(t *testing.T) {
	t.Parallel()
	store := openSQLite(t)

	r := record("d-1", "u-1", time.Time{})
	require.NoError(t, store.Save(t.Context(), r))
	assert.False(t, r.CreatedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	t.Parallel()
	store := openSQLite(t)

	_, err := store.Get(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestListByUserNewestFirst(t *testing.T) {
	t.Parallel()
	store := openSQLite(t)
	ctx := t.Context()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, store.Save(ctx, record(fmt.Sprintf("d-%d", i), "u-1", base.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, store.Save(ctx, record("other", "u-2", base)))

	records, err := store.ListByUser(ctx, "u-1", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "d-4", records[0].ID)
	assert.Equal(t, "d-3", records[1].ID)
	assert.Equal(t, "d-2", records[2].ID)

	records, err = store.ListByUser(ctx, "u-1", 0)
	require.NoError(t, err)
	assert.Len(t, records, 5)

	records, err = store.ListByUser(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = store.ListByUser(ctx, "", 10)
	assert.True(t, errors.IsValidation(err))
}

func TestDelete(t *testing.T) {
	t.Parallel()
	store := openSQLite(t)
	ctx := t.Context()

	require.NoError(t, store.Save(ctx, record("d-1", "u-1", time.Now())))
	require.NoError(t, store.Delete(ctx, "d-1"))

	_, err := store.Get(ctx, "d-1")
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(store.Delete(ctx, "d-1")))
}

func TestConcurrentSaves(t *testing.T) {
	t.Parallel()
	store := openSQLite(t)
	ctx := t.Context()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Go(func() {
			assert.NoError(t, store.Save(ctx, record(fmt.Sprintf("c-%d", i), "u-1", time.Now())))
		})
	}
	wg.Wait()

	records, err := store.ListByUser(ctx, "u-1", 50)
	require.NoError(t, err)
	assert.Len(t, records, 10)
}

func TestClosedStore(t *testing.T) {
	t.Parallel()
	var store SQLiteStore

	err := store.Save(t.Context(), record("d-1", "u-1", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}
