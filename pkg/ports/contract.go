package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSaveStoreContract runs a suite of tests to verify that a SaveStore implementation
// adheres to the defined interface contract.
func RunSaveStoreContract(t *testing.T, store SaveStore) {
	ctx := context.Background()
	key := "contract.Save_" + time.Now().Format("20060102150405")

	record := func(node string) *domain.SaveRecord {
		return &domain.SaveRecord{
			NodeID:      node,
			DialogIndex: 2,
			SaveTime:    "2024-03-09 14:05",
			PreviewText: "兔子: 今天天气不错呢！",
			History: []domain.HistoryRecord{
				{Speaker: "兔子", Content: "今天天气不错呢！"},
				{Speaker: domain.DefaultQuestionLabel, Content: "go?"},
			},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		rec := record("start")
		require.NoError(t, store.Save(ctx, key, rec), "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, rec, loaded)
	})

	t.Run("Save overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, record("later")))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "later", loaded.NodeID)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent."+key)
		assert.ErrorIs(t, err, domain.ErrSaveNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, record("start")))

		require.NoError(t, store.Delete(ctx, key), "Delete should not return error")

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSaveNotFound, "Load after Delete should return ErrSaveNotFound")

		assert.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		k1 := key + "-1"
		k2 := key + "-2"
		require.NoError(t, store.Save(ctx, k1, record("a")))
		require.NoError(t, store.Save(ctx, k2, record("b")))
		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}
