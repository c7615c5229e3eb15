package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simple-blog/pkg/simpleblog"
	memorystorage "github.com/simple-blog/pkg/simpleblog/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	backend := memorystorage.New()
	ctx := context.Background()
	testKey := "ref/original"
	testData := "Hello, World! This is test data."

	t.Run("Upload", func(t *testing.T) {
		err := backend.Upload(ctx, testKey, strings.NewReader(testData))
		assert.NoError(t, err)
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, testKey, meta.Key)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.NotEmpty(t, meta.ContentType)
		assert.False(t, meta.UpdatedAt.IsZero())
	})

	t.Run("Download", func(t *testing.T) {
		reader, err := backend.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("Overwrite", func(t *testing.T) {
		err := backend.Upload(ctx, testKey, strings.NewReader("replaced"))
		require.NoError(t, err)

		reader, err := backend.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "replaced", string(data))
	})

	t.Run("GetDownloadURL", func(t *testing.T) {
		_, err := backend.GetDownloadURL(ctx, testKey)
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		err := backend.Delete(ctx, testKey)
		require.NoError(t, err)

		_, err = backend.Download(ctx, testKey)
		assert.ErrorIs(t, err, simpleblog.ErrAssetNotFound)
	})

	t.Run("MissingKey", func(t *testing.T) {
		_, err := backend.Download(ctx, "missing")
		assert.ErrorIs(t, err, simpleblog.ErrAssetNotFound)

		_, err = backend.GetObjectMeta(ctx, "missing")
		assert.ErrorIs(t, err, simpleblog.ErrAssetNotFound)

		err = backend.Delete(ctx, "missing")
		assert.ErrorIs(t, err, simpleblog.ErrAssetNotFound)
	})
}
