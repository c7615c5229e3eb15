package simpleblog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrPostNotFound indicates a post does not resolve to an existing row
	ErrPostNotFound = errors.New("post not found")

	// ErrCommentNotFound indicates a comment does not resolve to an existing row
	ErrCommentNotFound = errors.New("comment not found")

	// ErrUserNotFound indicates a user was not found
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken indicates the email is already registered
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials indicates an email/password pair did not match
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden indicates the actor is not the owner of the resource
	ErrForbidden = errors.New("actor is not the owner")

	// ErrInvalidState indicates the operation is not valid for the current
	// lifecycle state (e.g. restoring an active entity)
	ErrInvalidState = errors.New("invalid lifecycle state for operation")

	// ErrStorageUnavailable indicates a blob store I/O failure
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrValidationFailed indicates a malformed field reached the service
	ErrValidationFailed = errors.New("validation failed")

	// ErrAssetNotFound indicates a blob store key does not exist
	ErrAssetNotFound = errors.New("asset not found")
)

// PostError represents an error related to post operations
type PostError struct {
	PostID uuid.UUID
	Op     string
	Err    error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post operation %s failed for post %s: %v", e.Op, e.PostID, e.Err)
}

func (e *PostError) Unwrap() error {
	return e.Err
}

// CommentError represents an error related to comment operations
type CommentError struct {
	CommentID uuid.UUID
	Op        string
	Err       error
}

func (e *CommentError) Error() string {
	return fmt.Sprintf("comment operation %s failed for comment %s: %v", e.Op, e.CommentID, e.Err)
}

func (e *CommentError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
