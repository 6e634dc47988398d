package embeddings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCacheProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("persists across instances", func(t *testing.T) {
		dir := t.TempDir()
		mock := NewMockProvider()
		cache, err := NewDiskCacheProvider(mock, WithDirectory(dir))
		require.NoError(t, err)

		res, err := cache.GenerateBatchEmbeddings(ctx, []string{"one", "three"})
		require.NoError(t, err)
		assert.Equal(t, float32(5), res[1][0])
		assert.Equal(t, 1, mock.batchCalls)

		// a second run over the same chunks embeds nothing
		mock2 := NewMockProvider()
		cache2, err := NewDiskCacheProvider(mock2, WithDirectory(dir))
		require.NoError(t, err)
		res, err = cache2.GenerateBatchEmbeddings(ctx, []string{"three", "one", "seven"})
		require.NoError(t, err)
		assert.Equal(t, []float32{5, 1, 2}, res[0])
		assert.Equal(t, []float32{3, 1, 2}, res[1])
		assert.Equal(t, []float32{5, 1, 2}, res[2])
		assert.Equal(t, 1, mock2.batchCalls)
		assert.Equal(t, 1, mock2.calls)

		entry, err := cache2.GetCachedEntry("seven")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "seven", entry.TextPrefix)
	})

	t.Run("single texts go through GenerateEmbedding", func(t *testing.T) {
		mock := NewMockProvider()
		cache, err := NewDiskCacheProvider(mock, WithDirectory(t.TempDir()))
		require.NoError(t, err)

		v, err := cache.GenerateEmbedding(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{5, 1, 2}, v)
		_, err = cache.GenerateEmbedding(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, 1, mock.calls)
		assert.Equal(t, 0, mock.batchCalls)
	})

	t.Run("evicts least recently used entries", func(t *testing.T) {
		dir := t.TempDir()
		cache, err := NewDiskCacheProvider(NewMockProvider(), WithDirectory(dir), WithMaxEntries(2))
		require.NoError(t, err)

		_, err = cache.GenerateEmbedding(ctx, "a")
		require.NoError(t, err)
		past := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(cache.cacheFilePath("a"), past, past))

		_, err = cache.GenerateEmbedding(ctx, "b")
		require.NoError(t, err)
		_, err = cache.GenerateEmbedding(ctx, "c")
		require.NoError(t, err)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, files, 2)
		entry, err := cache.GetCachedEntry("a")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("corrupted files are misses", func(t *testing.T) {
		mock := NewMockProvider()
		cache, err := NewDiskCacheProvider(mock, WithDirectory(t.TempDir()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(cache.cacheFilePath("x"), []byte("{broken"), 0o644))

		v, err := cache.GenerateEmbedding(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 1, 2}, v)
		assert.Equal(t, 1, mock.calls)
	})

	t.Run("upstream errors are not cached", func(t *testing.T) {
		mock := NewMockProvider()
		mock.failOn = "bad"
		cache, err := NewDiskCacheProvider(mock, WithDirectory(t.TempDir()))
		require.NoError(t, err)

		_, err = cache.GenerateEmbedding(ctx, "bad")
		require.Error(t, err)
		entry, err := cache.GetCachedEntry("bad")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("default directory is per model under home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		cache, err := NewDiskCacheProvider(NewMockProvider())
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".bionet", "cache", "embeddings", "mock"), cache.Directory())

		require.NoError(t, cache.ClearCache())
		_, err = os.Stat(cache.Directory())
		assert.NoError(t, err)
	})
}
