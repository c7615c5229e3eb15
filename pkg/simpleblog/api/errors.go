package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/simple-blog/pkg/simpleblog"
)

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors onto HTTP status codes. Wrapper errors
// (PostError, CommentError, StorageError) unwrap to their sentinels.
func statusFor(err error) int {
	switch {
	case errors.Is(err, simpleblog.ErrPostNotFound),
		errors.Is(err, simpleblog.ErrCommentNotFound),
		errors.Is(err, simpleblog.ErrUserNotFound),
		errors.Is(err, simpleblog.ErrAssetNotFound):
		return http.StatusNotFound
	case errors.Is(err, simpleblog.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, simpleblog.ErrInvalidState),
		errors.Is(err, simpleblog.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, simpleblog.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, simpleblog.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, simpleblog.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}
