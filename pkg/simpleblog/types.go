package simpleblog

import (
	"time"

	"github.com/google/uuid"
)

// LifecycleState is the domain type for content lifecycle states.
//
// A purged entity has no row and therefore no state constant: purging is
// observable only as a subsequent not-found.
type LifecycleState string

// Lifecycle state constants (typed).
const (
	StateActive  LifecycleState = "active"
	StateTrashed LifecycleState = "trashed"
)

// AssetRef is an opaque handle into the cover image store. The empty ref
// means "no cover image". A ref resolves to a stored original and its
// derived thumbnail.
type AssetRef string

// CoverVariant selects which rendition of a cover image to address.
type CoverVariant string

// Cover variant constants (typed).
const (
	VariantOriginal CoverVariant = "original"
	VariantThumb    CoverVariant = "thumb"
)

// User represents a registered account. Users own posts and comments; they
// are never deleted through this package.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Post represents an authored post with an optional single-slot cover image.
//
// OwnerID is fixed at creation and never transferred. CoverImageRef is empty
// or resolves to exactly one stored asset.
type Post struct {
	ID            uuid.UUID      `json:"id"`
	OwnerID       uuid.UUID      `json:"owner_id"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	CoverImageRef AssetRef       `json:"cover_image_ref,omitempty"`
	State         LifecycleState `json:"state"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	TrashedAt     *time.Time     `json:"trashed_at,omitempty"`
}

// Comment represents a threaded comment on a post. Same state machine as
// Post, no associated asset. PostID and AuthorID are immutable.
type Comment struct {
	ID        uuid.UUID      `json:"id"`
	PostID    uuid.UUID      `json:"post_id"`
	AuthorID  uuid.UUID      `json:"author_id"`
	Body      string         `json:"body"`
	State     LifecycleState `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	TrashedAt *time.Time     `json:"trashed_at,omitempty"`
}

// PostView is the snapshot shape handed to the presentation layer: the post
// fields plus resolved cover image URLs.
type PostView struct {
	ID                 uuid.UUID      `json:"id"`
	OwnerID            uuid.UUID      `json:"owner_id"`
	Title              string         `json:"title"`
	Content            string         `json:"content"`
	CoverImageURL      string         `json:"cover_image_url,omitempty"`
	CoverImageThumbURL string         `json:"cover_image_thumb_url,omitempty"`
	State              LifecycleState `json:"state"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	TrashedAt          *time.Time     `json:"trashed_at,omitempty"`
}

// CommentView is the snapshot shape for a comment.
type CommentView struct {
	ID        uuid.UUID      `json:"id"`
	PostID    uuid.UUID      `json:"post_id"`
	AuthorID  uuid.UUID      `json:"author_id"`
	Body      string         `json:"body"`
	State     LifecycleState `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	TrashedAt *time.Time     `json:"trashed_at,omitempty"`
}
