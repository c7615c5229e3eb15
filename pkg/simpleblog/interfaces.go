package simpleblog

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends holding cover image
// bytes. Implementations know nothing about posts or lifecycle state.
type BlobStore interface {
	// Upload stores the content read from reader under objectKey,
	// overwriting any existing object.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download returns a reader for the stored object. Returns
	// ErrAssetNotFound if the key does not exist.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the stored object. Returns ErrAssetNotFound if the
	// key does not exist.
	Delete(ctx context.Context, objectKey string) error

	// GetDownloadURL returns a retrievable address for the object, when the
	// backend can produce one.
	GetDownloadURL(ctx context.Context, objectKey string) (string, error)

	// GetObjectMeta retrieves metadata for a stored object.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// Repository defines the interface for post, comment and user persistence.
//
// Each mutation executes within its own transaction scoped to a single row;
// no call spans multiple entities. The state-transition primitives
// (SoftDelete*/Restore*/HardDelete*) fail with the entity's not-found
// sentinel when the id does not resolve and with ErrInvalidState when the
// row exists in the wrong lifecycle state.
type Repository interface {
	// Post operations
	CreatePost(ctx context.Context, post *Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	GetAnyPost(ctx context.Context, id uuid.UUID) (*Post, error)
	UpdatePost(ctx context.Context, post *Post) error
	ListPosts(ctx context.Context, filter ListPostsFilter) ([]*Post, error)
	ListTrashedPosts(ctx context.Context, ownerID uuid.UUID) ([]*Post, error)
	SoftDeletePost(ctx context.Context, id uuid.UUID, at time.Time) error
	RestorePost(ctx context.Context, id uuid.UUID) error
	HardDeletePost(ctx context.Context, id uuid.UUID) error

	// Comment operations
	CreateComment(ctx context.Context, comment *Comment) error
	GetComment(ctx context.Context, id uuid.UUID) (*Comment, error)
	GetAnyComment(ctx context.Context, id uuid.UUID) (*Comment, error)
	ListComments(ctx context.Context, postID uuid.UUID) ([]*Comment, error)
	SoftDeleteComment(ctx context.Context, id uuid.UUID, at time.Time) error
	RestoreComment(ctx context.Context, id uuid.UUID) error
	HardDeleteComment(ctx context.Context, id uuid.UUID) error

	// User operations
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// ListPostsFilter defines filtering options for listing active posts.
type ListPostsFilter struct {
	// Search matches a case-insensitive substring of title or content.
	Search string
	Limit  int
	Offset int
}
