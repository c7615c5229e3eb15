package simpleblog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CoverImageStore manages the single binary asset bound to a post: store,
// replace, purge, resolve. It knows nothing about posts' relational state.
//
// Each stored image occupies one slot addressed by an AssetRef; the original
// lives at <ref>/original and a synchronously derived thumbnail at
// <ref>/thumb. Storing never mutates an existing slot, so a failed write
// can never corrupt the previously stored asset.
type CoverImageStore struct {
	backend     BlobStore
	backendName string
	urlPrefix   string
	timeout     time.Duration
	thumbBound  uint
	logger      *slog.Logger
}

// CoverImageStoreOption configures a CoverImageStore.
type CoverImageStoreOption func(*CoverImageStore)

// WithURLPrefix makes URLFor produce content-addressed URLs under prefix
// instead of delegating to the backend.
func WithURLPrefix(prefix string) CoverImageStoreOption {
	return func(s *CoverImageStore) {
		s.urlPrefix = prefix
	}
}

// WithCallTimeout bounds every blob store call. Default 10s.
func WithCallTimeout(d time.Duration) CoverImageStoreOption {
	return func(s *CoverImageStore) {
		s.timeout = d
	}
}

// WithThumbnailBound sets the maximum thumbnail dimension in pixels.
// Default 300.
func WithThumbnailBound(px uint) CoverImageStoreOption {
	return func(s *CoverImageStore) {
		s.thumbBound = px
	}
}

// WithCoverLogger sets the logger used for non-fatal cleanup failures.
func WithCoverLogger(logger *slog.Logger) CoverImageStoreOption {
	return func(s *CoverImageStore) {
		s.logger = logger
	}
}

// NewCoverImageStore creates a cover image store on top of the named blob
// backend.
func NewCoverImageStore(backendName string, backend BlobStore, opts ...CoverImageStoreOption) *CoverImageStore {
	s := &CoverImageStore{
		backend:     backend,
		backendName: backendName,
		timeout:     10 * time.Second,
		thumbBound:  300,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func originalKey(ref AssetRef) string { return string(ref) + "/original" }
func thumbKey(ref AssetRef) string    { return string(ref) + "/thumb" }

func (s *CoverImageStore) storageError(op, key string, err error) error {
	return &StorageError{
		Backend: s.backendName,
		Key:     key,
		Op:      op,
		Err:     fmt.Errorf("%w: %v", ErrStorageUnavailable, err),
	}
}

// Store persists the image read from r plus a derived thumbnail and returns
// a fresh reference. It never touches an existing slot.
func (s *CoverImageStore) Store(ctx context.Context, r io.Reader) (AssetRef, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read image payload: %w", err)
	}

	// The validation layer has already confirmed an image type, but decode
	// defensively before any bytes hit the backend.
	thumb, err := deriveThumbnail(data, s.thumbBound)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	ref := AssetRef(uuid.New().String())

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.backend.Upload(cctx, originalKey(ref), bytes.NewReader(data)); err != nil {
		return "", s.storageError("store", originalKey(ref), err)
	}
	if err := s.backend.Upload(cctx, thumbKey(ref), bytes.NewReader(thumb)); err != nil {
		// The slot is half-written and its ref was never exposed; clean up
		// the original so no orphan remains.
		if derr := s.backend.Delete(cctx, originalKey(ref)); derr != nil && !errors.Is(derr, ErrAssetNotFound) {
			s.logger.Warn("cover image cleanup failed after partial store",
				"backend", s.backendName, "ref", string(ref), "error", derr)
		}
		return "", s.storageError("store_thumb", thumbKey(ref), err)
	}

	return ref, nil
}

// Replace stores the new image first and only after that succeeds deletes
// the old asset. A failure writing the new asset leaves the old one intact
// and is reported without touching old. Old-asset deletion failures are
// logged, not returned: relational state is the source of truth and an
// orphaned blob is recoverable by a later sweep.
func (s *CoverImageStore) Replace(ctx context.Context, old AssetRef, r io.Reader) (AssetRef, error) {
	ref, err := s.Store(ctx, r)
	if err != nil {
		return "", err
	}

	if old != "" {
		if err := s.Purge(ctx, old); err != nil {
			s.logger.Warn("failed to purge replaced cover image",
				"backend", s.backendName, "ref", string(old), "error", err)
		}
	}

	return ref, nil
}

// Purge deletes the asset and its derived thumbnail permanently. Purging a
// missing ref is success: the operation is idempotent on retry.
func (s *CoverImageStore) Purge(ctx context.Context, ref AssetRef) error {
	if ref == "" {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, key := range []string{originalKey(ref), thumbKey(ref)} {
		if err := s.backend.Delete(cctx, key); err != nil && !errors.Is(err, ErrAssetNotFound) {
			return s.storageError("purge", key, err)
		}
	}
	return nil
}

// URLFor resolves a stored reference and variant to a retrievable address.
// The empty ref resolves to the empty URL.
func (s *CoverImageStore) URLFor(ctx context.Context, ref AssetRef, variant CoverVariant) (string, error) {
	if ref == "" {
		return "", nil
	}
	if variant == "" {
		variant = VariantOriginal
	}
	if s.urlPrefix != "" {
		return fmt.Sprintf("%s/%s/%s", s.urlPrefix, ref, variant), nil
	}

	key := originalKey(ref)
	if variant == VariantThumb {
		key = thumbKey(ref)
	}
	url, err := s.backend.GetDownloadURL(ctx, key)
	if err != nil {
		return "", s.storageError("url_for", key, err)
	}
	return url, nil
}

// Open streams a stored variant. Used by the HTTP layer to serve assets for
// backends without externally retrievable URLs.
func (s *CoverImageStore) Open(ctx context.Context, ref AssetRef, variant CoverVariant) (io.ReadCloser, error) {
	if ref == "" {
		return nil, ErrAssetNotFound
	}
	key := originalKey(ref)
	if variant == VariantThumb {
		key = thumbKey(ref)
	}

	// No call timeout here: the returned reader outlives the call and is
	// bounded by the caller's context instead.
	rc, err := s.backend.Download(ctx, key)
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, s.storageError("open", key, err)
	}
	return rc, nil
}
