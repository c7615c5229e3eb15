package simpleblog_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simple-blog/pkg/simpleblog"
	"github.com/simple-blog/pkg/simpleblog/repo/memory"
	memorystorage "github.com/simple-blog/pkg/simpleblog/storage/memory"
)

// testImage returns an encoded PNG suitable as a cover image payload.
func testImage(t *testing.T) *bytes.Reader {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return bytes.NewReader(buf.Bytes())
}

type testEnv struct {
	svc     simpleblog.Service
	repo    simpleblog.Repository
	backend simpleblog.BlobStore
	covers  *simpleblog.CoverImageStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := memory.New()
	backend := memorystorage.New()
	covers := simpleblog.NewCoverImageStore("memory", backend,
		simpleblog.WithURLPrefix("/api/assets"))

	svc, err := simpleblog.New(
		simpleblog.WithRepository(repo),
		simpleblog.WithCoverImageStore(covers),
	)
	require.NoError(t, err)

	return &testEnv{svc: svc, repo: repo, backend: backend, covers: covers}
}

func registerUser(t *testing.T, svc simpleblog.Service, email string) *simpleblog.User {
	t.Helper()
	user, err := svc.RegisterUser(context.Background(), simpleblog.RegisterUserRequest{
		Name:     "Test User",
		Email:    email,
		Password: "correct horse battery staple",
	})
	require.NoError(t, err)
	return user
}

func createPost(t *testing.T, env *testEnv, ownerID uuid.UUID, image io.Reader) *simpleblog.Post {
	t.Helper()
	post, err := env.svc.CreatePost(context.Background(), simpleblog.CreatePostRequest{
		OwnerID: ownerID,
		Title:   "A Post",
		Content: "Some content",
		Image:   image,
	})
	require.NoError(t, err)
	return post
}

// assetExists probes the backend for the given variant.
func assetExists(t *testing.T, backend simpleblog.BlobStore, ref simpleblog.AssetRef, variant simpleblog.CoverVariant) bool {
	t.Helper()
	key := string(ref) + "/original"
	if variant == simpleblog.VariantThumb {
		key = string(ref) + "/thumb"
	}
	_, err := backend.GetObjectMeta(context.Background(), key)
	if err == nil {
		return true
	}
	require.ErrorIs(t, err, simpleblog.ErrAssetNotFound)
	return false
}

func TestRegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := registerUser(t, env.svc, "Alice@Example.COM")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "correct horse battery staple", user.PasswordHash)

	t.Run("ValidCredentials", func(t *testing.T) {
		got, err := env.svc.Authenticate(ctx, "alice@example.com", "correct horse battery staple")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := env.svc.Authenticate(ctx, "alice@example.com", "wrong")
		assert.ErrorIs(t, err, simpleblog.ErrInvalidCredentials)
	})

	t.Run("UnknownEmailIndistinguishable", func(t *testing.T) {
		_, err := env.svc.Authenticate(ctx, "nobody@example.com", "whatever")
		assert.ErrorIs(t, err, simpleblog.ErrInvalidCredentials)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := env.svc.RegisterUser(ctx, simpleblog.RegisterUserRequest{
			Name:     "Impostor",
			Email:    "alice@example.com",
			Password: "another password",
		})
		assert.ErrorIs(t, err, simpleblog.ErrEmailTaken)
	})

	t.Run("ShortPassword", func(t *testing.T) {
		_, err := env.svc.RegisterUser(ctx, simpleblog.RegisterUserRequest{
			Name:     "Bob",
			Email:    "bob@example.com",
			Password: "short",
		})
		assert.ErrorIs(t, err, simpleblog.ErrValidationFailed)
	})
}

func TestCreatePostWithCoverImage(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()

	post := createPost(t, env, owner, testImage(t))
	require.NotEmpty(t, post.CoverImageRef)

	assert.True(t, assetExists(t, env.backend, post.CoverImageRef, simpleblog.VariantOriginal))
	assert.True(t, assetExists(t, env.backend, post.CoverImageRef, simpleblog.VariantThumb))

	view := env.svc.PostSnapshot(context.Background(), post)
	assert.Equal(t, "/api/assets/"+string(post.CoverImageRef)+"/original", view.CoverImageURL)
	assert.Equal(t, "/api/assets/"+string(post.CoverImageRef)+"/thumb", view.CoverImageThumbURL)
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreatePost(ctx, simpleblog.CreatePostRequest{
		OwnerID: uuid.New(),
		Title:   "   ",
		Content: "body",
	})
	assert.ErrorIs(t, err, simpleblog.ErrValidationFailed)

	_, err = env.svc.CreatePost(ctx, simpleblog.CreatePostRequest{
		Title:   "ok",
		Content: "body",
	})
	assert.ErrorIs(t, err, simpleblog.ErrValidationFailed)
}

func TestCreatePostSanitizesMarkup(t *testing.T) {
	env := newTestEnv(t)

	post, err := env.svc.CreatePost(context.Background(), simpleblog.CreatePostRequest{
		OwnerID: uuid.New(),
		Title:   `Hello <script>alert("x")</script>`,
		Content: "<b>bold</b> text",
	})
	require.NoError(t, err)
	assert.NotContains(t, post.Title, "<script>")
	assert.NotContains(t, post.Content, "<b>")
}

func TestUpdatePostReplacesCoverWithoutOrphans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	post := createPost(t, env, owner, testImage(t))
	oldRef := post.CoverImageRef

	updated, err := env.svc.UpdatePost(ctx, owner, simpleblog.UpdatePostRequest{
		PostID: post.ID,
		Image:  testImage(t),
	})
	require.NoError(t, err)
	require.NotEmpty(t, updated.CoverImageRef)
	require.NotEqual(t, oldRef, updated.CoverImageRef)

	// New slot is live, old slot and its thumbnail are gone.
	assert.True(t, assetExists(t, env.backend, updated.CoverImageRef, simpleblog.VariantOriginal))
	assert.False(t, assetExists(t, env.backend, oldRef, simpleblog.VariantOriginal))
	assert.False(t, assetExists(t, env.backend, oldRef, simpleblog.VariantThumb))
}

func TestUpdatePostTextOnlyKeepsCover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	post := createPost(t, env, owner, testImage(t))
	title := "Retitled"

	updated, err := env.svc.UpdatePost(ctx, owner, simpleblog.UpdatePostRequest{
		PostID: post.ID,
		Title:  &title,
	})
	require.NoError(t, err)
	assert.Equal(t, "Retitled", updated.Title)
	assert.Equal(t, post.Content, updated.Content)
	assert.Equal(t, post.CoverImageRef, updated.CoverImageRef)
	assert.True(t, assetExists(t, env.backend, post.CoverImageRef, simpleblog.VariantOriginal))
}

func TestOwnershipGuard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	post := createPost(t, env, owner, nil)
	title := "hijacked"

	_, err := env.svc.UpdatePost(ctx, stranger, simpleblog.UpdatePostRequest{PostID: post.ID, Title: &title})
	assert.ErrorIs(t, err, simpleblog.ErrForbidden)

	assert.ErrorIs(t, env.svc.DeletePost(ctx, stranger, post.ID), simpleblog.ErrForbidden)

	require.NoError(t, env.svc.DeletePost(ctx, owner, post.ID))
	_, err = env.svc.RestorePost(ctx, stranger, post.ID)
	assert.ErrorIs(t, err, simpleblog.ErrForbidden)
	assert.ErrorIs(t, env.svc.ForceDeletePost(ctx, stranger, post.ID), simpleblog.ErrForbidden)
}

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	post := createPost(t, env, owner, testImage(t))
	ref := post.CoverImageRef

	t.Run("TrashHidesButKeepsImage", func(t *testing.T) {
		require.NoError(t, env.svc.DeletePost(ctx, owner, post.ID))

		_, err := env.svc.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, simpleblog.ErrPostNotFound)
		assert.True(t, assetExists(t, env.backend, ref, simpleblog.VariantOriginal))
	})

	t.Run("UpdateWhileTrashedIsInvalidState", func(t *testing.T) {
		title := "no"
		_, err := env.svc.UpdatePost(ctx, owner, simpleblog.UpdatePostRequest{PostID: post.ID, Title: &title})
		assert.ErrorIs(t, err, simpleblog.ErrInvalidState)
		assert.NotErrorIs(t, err, simpleblog.ErrPostNotFound)
	})

	t.Run("DoubleTrashIsInvalidState", func(t *testing.T) {
		assert.ErrorIs(t, env.svc.DeletePost(ctx, owner, post.ID), simpleblog.ErrInvalidState)
	})

	t.Run("RestoreBringsImageBack", func(t *testing.T) {
		restored, err := env.svc.RestorePost(ctx, owner, post.ID)
		require.NoError(t, err)
		assert.Equal(t, simpleblog.StateActive, restored.State)
		assert.Equal(t, ref, restored.CoverImageRef)

		view := env.svc.PostSnapshot(ctx, restored)
		assert.NotEmpty(t, view.CoverImageURL)
	})

	t.Run("RestoreActiveIsInvalidState", func(t *testing.T) {
		_, err := env.svc.RestorePost(ctx, owner, post.ID)
		assert.ErrorIs(t, err, simpleblog.ErrInvalidState)
	})

	t.Run("ForceDeleteRequiresTrash", func(t *testing.T) {
		assert.ErrorIs(t, env.svc.ForceDeletePost(ctx, owner, post.ID), simpleblog.ErrInvalidState)
	})

	t.Run("ForceDeletePurgesImage", func(t *testing.T) {
		require.NoError(t, env.svc.DeletePost(ctx, owner, post.ID))
		require.NoError(t, env.svc.ForceDeletePost(ctx, owner, post.ID))

		_, err := env.svc.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, simpleblog.ErrPostNotFound)
		assert.False(t, assetExists(t, env.backend, ref, simpleblog.VariantOriginal))
		assert.False(t, assetExists(t, env.backend, ref, simpleblog.VariantThumb))
	})
}

func TestListTrashedPosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	post := createPost(t, env, owner, nil)
	require.NoError(t, env.svc.DeletePost(ctx, owner, post.ID))

	trashed, err := env.svc.ListTrashedPosts(ctx, owner)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, post.ID, trashed[0].ID)

	_, err = env.svc.ListTrashedPosts(ctx, uuid.Nil)
	assert.ErrorIs(t, err, simpleblog.ErrForbidden)
}

func TestCommentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	author := uuid.New()

	post := createPost(t, env, owner, nil)

	comment, err := env.svc.CreateComment(ctx, simpleblog.CreateCommentRequest{
		PostID:   post.ID,
		AuthorID: author,
		Body:     "Nice post",
	})
	require.NoError(t, err)

	t.Run("ListsOldestFirst", func(t *testing.T) {
		second, err := env.svc.CreateComment(ctx, simpleblog.CreateCommentRequest{
			PostID:   post.ID,
			AuthorID: author,
			Body:     "Second thought",
		})
		require.NoError(t, err)

		comments, err := env.svc.ListComments(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, comment.ID, comments[0].ID)
		assert.Equal(t, second.ID, comments[1].ID)
	})

	t.Run("AuthorOnlyMutations", func(t *testing.T) {
		assert.ErrorIs(t, env.svc.DeleteComment(ctx, owner, comment.ID), simpleblog.ErrForbidden)
	})

	t.Run("TrashRestoreForceDelete", func(t *testing.T) {
		require.NoError(t, env.svc.DeleteComment(ctx, author, comment.ID))

		comments, err := env.svc.ListComments(ctx, post.ID)
		require.NoError(t, err)
		assert.Len(t, comments, 1)

		restored, err := env.svc.RestoreComment(ctx, author, comment.ID)
		require.NoError(t, err)
		assert.Equal(t, simpleblog.StateActive, restored.State)

		require.NoError(t, env.svc.DeleteComment(ctx, author, comment.ID))
		require.NoError(t, env.svc.ForceDeleteComment(ctx, author, comment.ID))
		assert.ErrorIs(t, env.svc.DeleteComment(ctx, author, comment.ID), simpleblog.ErrCommentNotFound)
	})

	t.Run("RequiresActivePost", func(t *testing.T) {
		require.NoError(t, env.svc.DeletePost(ctx, owner, post.ID))
		_, err := env.svc.CreateComment(ctx, simpleblog.CreateCommentRequest{
			PostID:   post.ID,
			AuthorID: author,
			Body:     "Too late",
		})
		assert.ErrorIs(t, err, simpleblog.ErrPostNotFound)
	})
}

// failingBackend wraps a BlobStore and fails selected operations.
type failingBackend struct {
	simpleblog.BlobStore
	failUpload bool
	failDelete bool
}

var errBackendDown = errors.New("backend down")

func (b *failingBackend) Upload(ctx context.Context, key string, r io.Reader) error {
	if b.failUpload {
		return errBackendDown
	}
	return b.BlobStore.Upload(ctx, key, r)
}

func (b *failingBackend) Delete(ctx context.Context, key string) error {
	if b.failDelete {
		return errBackendDown
	}
	return b.BlobStore.Delete(ctx, key)
}

func TestCreatePostImageFailureRetainsRow(t *testing.T) {
	repo := memory.New()
	backend := &failingBackend{BlobStore: memorystorage.New(), failUpload: true}
	covers := simpleblog.NewCoverImageStore("memory", backend)

	svc, err := simpleblog.New(
		simpleblog.WithRepository(repo),
		simpleblog.WithCoverImageStore(covers),
	)
	require.NoError(t, err)

	ctx := context.Background()
	owner := uuid.New()

	post, err := svc.CreatePost(ctx, simpleblog.CreatePostRequest{
		OwnerID: owner,
		Title:   "Resilient",
		Content: "body",
		Image:   testImage(t),
	})

	// Partial success: the row exists, the error is distinguishable and
	// carries the storage sentinel.
	require.Error(t, err)
	require.NotNil(t, post)
	assert.ErrorIs(t, err, simpleblog.ErrStorageUnavailable)

	var postErr *simpleblog.PostError
	require.ErrorAs(t, err, &postErr)
	assert.Equal(t, "store_cover", postErr.Op)

	stored, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.CoverImageRef)
}

func TestUpdatePostImageFailureKeepsOldCover(t *testing.T) {
	repo := memory.New()
	inner := memorystorage.New()
	backend := &failingBackend{BlobStore: inner}
	covers := simpleblog.NewCoverImageStore("memory", backend)

	svc, err := simpleblog.New(
		simpleblog.WithRepository(repo),
		simpleblog.WithCoverImageStore(covers),
	)
	require.NoError(t, err)

	ctx := context.Background()
	owner := uuid.New()

	post, err := svc.CreatePost(ctx, simpleblog.CreatePostRequest{
		OwnerID: owner,
		Title:   "Stable",
		Content: "body",
		Image:   testImage(t),
	})
	require.NoError(t, err)
	oldRef := post.CoverImageRef

	backend.failUpload = true
	_, err = svc.UpdatePost(ctx, owner, simpleblog.UpdatePostRequest{
		PostID: post.ID,
		Image:  testImage(t),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, simpleblog.ErrStorageUnavailable)

	// The old asset and the post's reference are untouched.
	stored, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, oldRef, stored.CoverImageRef)
	_, err = inner.GetObjectMeta(ctx, string(oldRef)+"/original")
	assert.NoError(t, err)
}

func TestForceDeleteSurvivesPurgeFailure(t *testing.T) {
	repo := memory.New()
	backend := &failingBackend{BlobStore: memorystorage.New()}
	covers := simpleblog.NewCoverImageStore("memory", backend)

	svc, err := simpleblog.New(
		simpleblog.WithRepository(repo),
		simpleblog.WithCoverImageStore(covers),
	)
	require.NoError(t, err)

	ctx := context.Background()
	owner := uuid.New()

	post, err := svc.CreatePost(ctx, simpleblog.CreatePostRequest{
		OwnerID: owner,
		Title:   "Orphan maker",
		Content: "body",
		Image:   testImage(t),
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePost(ctx, owner, post.ID))

	// Purge failures must not resurrect the row or fail the operation.
	backend.failDelete = true
	require.NoError(t, svc.ForceDeletePost(ctx, owner, post.ID))

	_, err = svc.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, simpleblog.ErrPostNotFound)
}

func TestInvalidImagePayloadRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreatePost(context.Background(), simpleblog.CreatePostRequest{
		OwnerID: uuid.New(),
		Title:   "Bad image",
		Content: "body",
		Image:   bytes.NewReader([]byte("definitely not an image")),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, simpleblog.ErrValidationFailed)
}
