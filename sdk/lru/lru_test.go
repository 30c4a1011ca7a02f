package lru

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	cache, err := NewLRU[string, []byte](10)
	require.NoError(t, err, "Failed to create LRU")
	require.Equal(t, 10, cache.Size())
	require.Equal(t, 0, cache.Len())

	_, err = NewLRU[string, []byte](-1)
	require.Error(t, err, "Negative size must be rejected")

	t.Run("BasicOperations", func(t *testing.T) {
		cache, err := NewLRU[string, []byte](5)
		require.NoError(t, err)

		cache.Add("record-1", []byte("alice"))
		val, ok := cache.Get("record-1")
		require.True(t, ok)
		require.Equal(t, []byte("alice"), val)
		require.True(t, cache.Contains("record-1"))

		_, ok = cache.Get("missing")
		require.False(t, ok, "Missing key should not be found")

		cache.Add("record-2", []byte("bob"))
		cache.Remove("record-2")
		_, ok = cache.Get("record-2")
		require.False(t, ok, "Removed key should not be found")
		require.Equal(t, 1, cache.Len())
	})

	t.Run("Eviction", func(t *testing.T) {
		cache, err := NewLRU[int, string](3)
		require.NoError(t, err)

		for i := 1; i <= 4; i++ {
			cache.Add(i, "value")
		}

		// 2Q does not promise which entry goes, only the bound
		var count int
		for i := 1; i <= 4; i++ {
			if _, ok := cache.Get(i); ok {
				count++
			}
		}
		require.Equal(t, 3, count)
	})

	t.Run("Purge", func(t *testing.T) {
		cache, err := NewLRU[int, string](3)
		require.NoError(t, err)

		cache.Add(1, "one")
		cache.Add(2, "two")
		cache.Purge()
		require.Equal(t, 0, cache.Len())
		require.False(t, cache.Contains(1))
	})
}
