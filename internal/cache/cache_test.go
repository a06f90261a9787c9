package cache

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	t.Run("read non-existent", func(t *testing.T) {
		cache, err := New[[]string](t.TempDir(), CatalogCache)
		require.NoError(t, err)
		_, err = cache.Load("super-fake")
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("write", func(t *testing.T) {
		cache, err := New[[]string](t.TempDir(), CatalogCache)
		require.NoError(t, err)
		models := []string{"Deliberate", "stable_diffusion"}
		require.NoError(t, cache.Store("fake", models))

		result, err := cache.Load("fake")
		require.NoError(t, err)
		require.ElementsMatch(t, models, result)
	})

	t.Run("delete", func(t *testing.T) {
		cache, err := New[[]string](t.TempDir(), CatalogCache)
		require.NoError(t, err)
		require.NoError(t, cache.Store("fake", nil))
		require.NoError(t, cache.Delete("fake"))
		_, err = cache.Load("fake")
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid id", func(t *testing.T) {
		t.Run("write", func(t *testing.T) {
			cache, err := New[[]string](t.TempDir(), CatalogCache)
			require.NoError(t, err)
			require.ErrorIs(t, cache.Write("", nil), errInvalidID)
		})
		t.Run("delete", func(t *testing.T) {
			cache, err := New[[]string](t.TempDir(), CatalogCache)
			require.NoError(t, err)
			require.ErrorIs(t, cache.Delete(""), errInvalidID)
		})
		t.Run("read", func(t *testing.T) {
			cache, err := New[[]string](t.TempDir(), CatalogCache)
			require.NoError(t, err)
			require.ErrorIs(t, cache.Read("", nil), errInvalidID)
		})
	})
}

func TestExpiringCache(t *testing.T) {
	t.Run("write and read", func(t *testing.T) {
		cache, err := NewExpiring[string](t.TempDir())
		require.NoError(t, err)

		require.NoError(t, cache.Store("test", time.Now().Add(time.Hour), "test data"))

		result, err := cache.Load("test")
		require.NoError(t, err)
		require.Equal(t, "test data", result)
	})

	t.Run("expired item", func(t *testing.T) {
		cache, err := NewExpiring[string](t.TempDir())
		require.NoError(t, err)

		// Expired an hour ago.
		require.NoError(t, cache.Store("test", time.Now().Add(-time.Hour), "test data"))

		err = cache.Read("test", func(io.Reader) error { return nil })
		require.Error(t, err)
		require.True(t, os.IsNotExist(err))
	})

	t.Run("overwrite item", func(t *testing.T) {
		cache, err := NewExpiring[string](t.TempDir())
		require.NoError(t, err)

		require.NoError(t, cache.Store("test", time.Now().Add(time.Hour), "test data 1"))
		require.NoError(t, cache.Store("test", time.Now().Add(2*time.Hour), "test data 2"))

		result, err := cache.Load("test")
		require.NoError(t, err)
		require.Equal(t, "test data 2", result)
	})
}
