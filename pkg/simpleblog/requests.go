package simpleblog

import (
	"io"

	"github.com/google/uuid"
)

// Request DTOs. The validation/auth layer hands these in pre-validated and
// typed; the service still rejects malformed fields defensively.

// RegisterUserRequest contains parameters for registering a user account
type RegisterUserRequest struct {
	Name     string
	Email    string
	Password string
}

// CreatePostRequest contains parameters for creating a post. Image is an
// optional cover image payload; nil means no cover.
type CreatePostRequest struct {
	OwnerID uuid.UUID
	Title   string
	Content string
	Image   io.Reader
}

// UpdatePostRequest contains parameters for updating a post. Nil pointer
// fields are left unchanged; a nil Image keeps the current cover.
type UpdatePostRequest struct {
	PostID  uuid.UUID
	Title   *string
	Content *string
	Image   io.Reader
}

// CreateCommentRequest contains parameters for commenting on a post
type CreateCommentRequest struct {
	PostID   uuid.UUID
	AuthorID uuid.UUID
	Body     string
}

// ListPostsRequest contains parameters for listing active posts
type ListPostsRequest struct {
	Search string
	Limit  int
	Offset int
}
