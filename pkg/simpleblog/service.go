package simpleblog

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the main interface for the simple-blog library: the
// lifecycle manager orchestrating the guard, the repository and the cover
// image store.
type Service interface {
	// User operations
	RegisterUser(ctx context.Context, req RegisterUserRequest) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	// Post operations
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	ListPosts(ctx context.Context, req ListPostsRequest) ([]*Post, error)
	ListTrashedPosts(ctx context.Context, actorID uuid.UUID) ([]*Post, error)
	UpdatePost(ctx context.Context, actorID uuid.UUID, req UpdatePostRequest) (*Post, error)
	DeletePost(ctx context.Context, actorID, id uuid.UUID) error
	RestorePost(ctx context.Context, actorID, id uuid.UUID) (*Post, error)
	ForceDeletePost(ctx context.Context, actorID, id uuid.UUID) error

	// Comment operations
	CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error)
	ListComments(ctx context.Context, postID uuid.UUID) ([]*Comment, error)
	DeleteComment(ctx context.Context, actorID, id uuid.UUID) error
	RestoreComment(ctx context.Context, actorID, id uuid.UUID) (*Comment, error)
	ForceDeleteComment(ctx context.Context, actorID, id uuid.UUID) error

	// Cover image access
	OpenCoverVariant(ctx context.Context, ref AssetRef, variant CoverVariant) (io.ReadCloser, error)

	// Snapshot shaping for the presentation layer
	PostSnapshot(ctx context.Context, post *Post) *PostView
	CommentSnapshot(comment *Comment) *CommentView
}
