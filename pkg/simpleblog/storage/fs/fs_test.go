package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simple-blog/pkg/simpleblog"
	fsstorage "github.com/simple-blog/pkg/simpleblog/storage/fs"
)

func TestFilesystemBackend(t *testing.T) {
	baseDir := t.TempDir()
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: baseDir, URLPrefix: "/files"})
	require.NoError(t, err)

	ctx := context.Background()
	testKey := "ref/original"
	testData := "cover image bytes"

	t.Run("UploadCreatesNestedDirs", func(t *testing.T) {
		err := backend.Upload(ctx, testKey, strings.NewReader(testData))
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(baseDir, "ref", "original"))
		assert.NoError(t, err)
	})

	t.Run("Download", func(t *testing.T) {
		reader, err := backend.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.NotEmpty(t, meta.ContentType)
	})

	t.Run("GetDownloadURL", func(t *testing.T) {
		url, err := backend.GetDownloadURL(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, "/files/ref/original", url)
	})

	t.Run("DeleteCleansEmptyDirs", func(t *testing.T) {
		err := backend.Delete(ctx, testKey)
		require.NoError(t, err)

		_, err = backend.Download(ctx, testKey)
		assert.ErrorIs(t, err, simpleblog.ErrAssetNotFound)

		// The now-empty ref directory was removed as well.
		_, err = os.Stat(filepath.Join(baseDir, "ref"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("MissingKey", func(t *testing.T) {
		err := backend.Delete(ctx, "missing")
		assert.ErrorIs(t, err, simpleblog.ErrAssetNotFound)

		_, err = backend.GetObjectMeta(ctx, "missing")
		assert.ErrorIs(t, err, simpleblog.ErrAssetNotFound)
	})
}

func TestFilesystemBackendRequiresBaseDir(t *testing.T) {
	_, err := fsstorage.New(fsstorage.Config{})
	assert.Error(t, err)
}

func TestFilesystemBackendURLRequiresPrefix(t *testing.T) {
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.GetDownloadURL(context.Background(), "key")
	assert.Error(t, err)
}
