package simpleblog_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simple-blog/pkg/simpleblog"
	memorystorage "github.com/simple-blog/pkg/simpleblog/storage/memory"
)

func TestCoverImageStore_StoreCreatesBothVariants(t *testing.T) {
	backend := memorystorage.New()
	covers := simpleblog.NewCoverImageStore("memory", backend)
	ctx := context.Background()

	ref, err := covers.Store(ctx, testImage(t))
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	for _, variant := range []simpleblog.CoverVariant{simpleblog.VariantOriginal, simpleblog.VariantThumb} {
		rc, err := covers.Open(ctx, ref, variant)
		require.NoError(t, err, "variant %s", variant)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		assert.NotEmpty(t, data)
	}
}

func TestCoverImageStore_StoreRejectsNonImage(t *testing.T) {
	covers := simpleblog.NewCoverImageStore("memory", memorystorage.New())

	_, err := covers.Store(context.Background(), strings.NewReader("plain text"))
	require.Error(t, err)
	assert.ErrorIs(t, err, simpleblog.ErrValidationFailed)
}

func TestCoverImageStore_PurgeIsIdempotent(t *testing.T) {
	backend := memorystorage.New()
	covers := simpleblog.NewCoverImageStore("memory", backend)
	ctx := context.Background()

	ref, err := covers.Store(ctx, testImage(t))
	require.NoError(t, err)

	require.NoError(t, covers.Purge(ctx, ref))

	// Second purge of the same ref is success, as is purging a ref that
	// never existed.
	assert.NoError(t, covers.Purge(ctx, ref))
	assert.NoError(t, covers.Purge(ctx, simpleblog.AssetRef("never-stored")))
	assert.NoError(t, covers.Purge(ctx, ""))

	_, err = covers.Open(ctx, ref, simpleblog.VariantOriginal)
	assert.ErrorIs(t, err, simpleblog.ErrAssetNotFound)
}

// thumbFailBackend fails the second upload of each pair, simulating a
// backend dying between the original and the thumbnail write.
type thumbFailBackend struct {
	simpleblog.BlobStore
	uploads int
	deletes []string
}

func (b *thumbFailBackend) Upload(ctx context.Context, key string, r io.Reader) error {
	b.uploads++
	if b.uploads%2 == 0 {
		return errors.New("write failed")
	}
	return b.BlobStore.Upload(ctx, key, r)
}

func (b *thumbFailBackend) Delete(ctx context.Context, key string) error {
	b.deletes = append(b.deletes, key)
	return b.BlobStore.Delete(ctx, key)
}

func TestCoverImageStore_PartialStoreLeavesNoOrphan(t *testing.T) {
	inner := memorystorage.New()
	backend := &thumbFailBackend{BlobStore: inner}
	covers := simpleblog.NewCoverImageStore("memory", backend)
	ctx := context.Background()

	_, err := covers.Store(ctx, testImage(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, simpleblog.ErrStorageUnavailable)

	// The half-written original was cleaned up.
	assert.Equal(t, 2, backend.uploads)
	require.Len(t, backend.deletes, 1)
	assert.True(t, strings.HasSuffix(backend.deletes[0], "/original"))

	_, err = inner.GetObjectMeta(ctx, backend.deletes[0])
	assert.ErrorIs(t, err, simpleblog.ErrAssetNotFound)
}

func TestCoverImageStore_ReplaceStoresBeforePurging(t *testing.T) {
	backend := memorystorage.New()
	covers := simpleblog.NewCoverImageStore("memory", backend)
	ctx := context.Background()

	oldRef, err := covers.Store(ctx, testImage(t))
	require.NoError(t, err)

	newRef, err := covers.Replace(ctx, oldRef, testImage(t))
	require.NoError(t, err)
	require.NotEqual(t, oldRef, newRef)

	_, err = covers.Open(ctx, newRef, simpleblog.VariantOriginal)
	assert.NoError(t, err)
	_, err = covers.Open(ctx, oldRef, simpleblog.VariantOriginal)
	assert.ErrorIs(t, err, simpleblog.ErrAssetNotFound)
}

func TestCoverImageStore_URLFor(t *testing.T) {
	covers := simpleblog.NewCoverImageStore("memory", memorystorage.New(),
		simpleblog.WithURLPrefix("/api/assets"))
	ctx := context.Background()

	t.Run("EmptyRef", func(t *testing.T) {
		url, err := covers.URLFor(ctx, "", simpleblog.VariantOriginal)
		require.NoError(t, err)
		assert.Empty(t, url)
	})

	t.Run("PrefixAddressing", func(t *testing.T) {
		url, err := covers.URLFor(ctx, "abc", simpleblog.VariantThumb)
		require.NoError(t, err)
		assert.Equal(t, "/api/assets/abc/thumb", url)
	})

	t.Run("DefaultVariant", func(t *testing.T) {
		url, err := covers.URLFor(ctx, "abc", "")
		require.NoError(t, err)
		assert.Equal(t, "/api/assets/abc/original", url)
	})
}
