package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"certquiz/internal/config"
	"certquiz/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	store, err := New(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SetGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	value, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.Set(ctx, "k", "v1"))
	value, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	// Overwrite replaces the previous value
	require.NoError(t, store.Set(ctx, "k", "v2"))
	value, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
}

func TestStore_LoadAnswers_Missing(t *testing.T) {
	store := newTestStore(t)

	answers := store.LoadAnswers(context.Background(), config.AnswerStoreKey)
	assert.NotNil(t, answers)
	assert.Empty(t, answers)
}

func TestStore_LoadAnswers_Corrupt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, config.AnswerStoreKey, "{not json"))

	answers := store.LoadAnswers(ctx, config.AnswerStoreKey)
	assert.NotNil(t, answers)
	assert.Empty(t, answers)
}

func TestStore_SaveAndLoadAnswers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved := map[string]string{"1": "A", "2": "BC"}
	require.NoError(t, store.SaveAnswers(ctx, config.AnswerStoreKey, saved))

	loaded := store.LoadAnswers(ctx, config.AnswerStoreKey)
	assert.Equal(t, saved, loaded)

	// Whole-map write-through: a save without a key removes it
	delete(saved, "2")
	require.NoError(t, store.SaveAnswers(ctx, config.AnswerStoreKey, saved))

	loaded = store.LoadAnswers(ctx, config.AnswerStoreKey)
	assert.Equal(t, map[string]string{"1": "A"}, loaded)
}
