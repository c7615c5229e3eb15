package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/simple-blog/pkg/simpleblog"
)

// maxImageBytes caps the accepted cover image upload size.
const maxImageBytes = 10 << 20 // 10 MiB

const defaultPageSize = 15

// BlogHandler handles HTTP requests for posts, comments and cover image
// assets
type BlogHandler struct {
	service simpleblog.Service
	logger  *slog.Logger
}

// NewBlogHandler creates a new blog handler
func NewBlogHandler(service simpleblog.Service, logger *slog.Logger) *BlogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlogHandler{service: service, logger: logger}
}

// RegisterPublic registers the routes served without authentication
func (h *BlogHandler) RegisterPublic(r chi.Router) {
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{postID}", h.GetPost)
	r.Get("/posts/{postID}/comments", h.ListComments)
	r.Get("/assets/{ref}/{variant}", h.ServeAsset)
}

// RegisterProtected registers the routes requiring a verified token
func (h *BlogHandler) RegisterProtected(r chi.Router) {
	r.Get("/me", h.Me)

	r.Post("/posts", h.CreatePost)
	r.Get("/posts/trashed", h.ListTrashedPosts)
	r.Put("/posts/{postID}", h.UpdatePost)
	r.Delete("/posts/{postID}", h.DeletePost)
	r.Put("/posts/{postID}/restore", h.RestorePost)
	r.Delete("/posts/{postID}/force", h.ForceDeletePost)

	r.Post("/posts/{postID}/comments", h.CreateComment)
	r.Delete("/comments/{commentID}", h.DeleteComment)
	r.Put("/comments/{commentID}/restore", h.RestoreComment)
	r.Delete("/comments/{commentID}/force", h.ForceDeleteComment)
}

// actorID extracts the authenticated account id from the verified token.
func actorID(r *http.Request) (uuid.UUID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, err
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	return id, nil
}

func urlUUID(r *http.Request, param string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, param))
}

// Me returns the authenticated account
func (h *BlogHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.service.GetUser(r.Context(), actor)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, user)
}

// postPayload is the decoded mutable part of a post request. Image is nil
// when the request carries no new cover image.
type postPayload struct {
	Title   *string
	Content *string
	Image   io.Reader
}

// decodePostPayload reads either a JSON body or a multipart form with an
// optional "image" file part.
func decodePostPayload(r *http.Request) (*postPayload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}

		p := &postPayload{}
		if v, ok := formValue(r, "title"); ok {
			p.Title = &v
		}
		if v, ok := formValue(r, "content"); ok {
			p.Content = &v
		}
		if file, _, err := r.FormFile("image"); err == nil {
			p.Image = file
		}
		return p, nil
	}

	var body struct {
		Title   *string `json:"title"`
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return &postPayload{Title: body.Title, Content: body.Content}, nil
}

func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// CreatePost creates a post for the authenticated account, optionally with a
// cover image. When storing the image fails after the post row is committed,
// the post is returned with 201 and the response notes the missing cover.
func (h *BlogHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	payload, err := decodePostPayload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := simpleblog.CreatePostRequest{OwnerID: actor, Image: payload.Image}
	if payload.Title != nil {
		req.Title = *payload.Title
	}
	if payload.Content != nil {
		req.Content = *payload.Content
	}

	post, err := h.service.CreatePost(r.Context(), req)
	if err != nil {
		// A partial success returns the created post alongside the error;
		// surface the post so the client can retry the image upload alone.
		if post != nil {
			h.logger.Warn("post created without cover image", "post_id", post.ID, "error", err)
			render.Status(r, http.StatusCreated)
			render.JSON(w, r, map[string]interface{}{
				"post":  h.service.PostSnapshot(r.Context(), post),
				"error": "cover image could not be stored",
			})
			return
		}
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.service.PostSnapshot(r.Context(), post))
}

// GetPost retrieves an active post by ID
func (h *BlogHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "postID")
	if err != nil {
		http.Error(w, "invalid post ID", http.StatusBadRequest)
		return
	}

	post, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, h.service.PostSnapshot(r.Context(), post))
}

// ListPosts lists active posts with optional search and pagination.
// Query parameters: search, page (1-based), per_page.
func (h *BlogHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	perPage := queryInt(r, "per_page", defaultPageSize)
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}

	posts, err := h.service.ListPosts(r.Context(), simpleblog.ListPostsRequest{
		Search: r.URL.Query().Get("search"),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, h.snapshotPosts(r, posts))
}

// ListTrashedPosts lists the authenticated account's trashed posts
func (h *BlogHandler) ListTrashedPosts(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	posts, err := h.service.ListTrashedPosts(r.Context(), actor)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, h.snapshotPosts(r, posts))
}

// UpdatePost updates an active post owned by the authenticated account
func (h *BlogHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := urlUUID(r, "postID")
	if err != nil {
		http.Error(w, "invalid post ID", http.StatusBadRequest)
		return
	}

	payload, err := decodePostPayload(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	post, err := h.service.UpdatePost(r.Context(), actor, simpleblog.UpdatePostRequest{
		PostID:  id,
		Title:   payload.Title,
		Content: payload.Content,
		Image:   payload.Image,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, h.service.PostSnapshot(r.Context(), post))
}

// DeletePost moves a post to the trash
func (h *BlogHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	h.postTransition(w, r, h.service.DeletePost)
}

// ForceDeletePost permanently deletes a trashed post and its cover image
func (h *BlogHandler) ForceDeletePost(w http.ResponseWriter, r *http.Request) {
	h.postTransition(w, r, h.service.ForceDeletePost)
}

func (h *BlogHandler) postTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID, id uuid.UUID) error) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := urlUUID(r, "postID")
	if err != nil {
		http.Error(w, "invalid post ID", http.StatusBadRequest)
		return
	}

	if err := op(r.Context(), actor, id); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// RestorePost restores a trashed post owned by the authenticated account
func (h *BlogHandler) RestorePost(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := urlUUID(r, "postID")
	if err != nil {
		http.Error(w, "invalid post ID", http.StatusBadRequest)
		return
	}

	post, err := h.service.RestorePost(r.Context(), actor, id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, h.service.PostSnapshot(r.Context(), post))
}

// CreateComment adds a comment to an active post
func (h *BlogHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	postID, err := urlUUID(r, "postID")
	if err != nil {
		http.Error(w, "invalid post ID", http.StatusBadRequest)
		return
	}

	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	comment, err := h.service.CreateComment(r.Context(), simpleblog.CreateCommentRequest{
		PostID:   postID,
		AuthorID: actor,
		Body:     body.Body,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.service.CommentSnapshot(comment))
}

// ListComments lists the active comments of an active post, oldest first
func (h *BlogHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := urlUUID(r, "postID")
	if err != nil {
		http.Error(w, "invalid post ID", http.StatusBadRequest)
		return
	}

	// Comments hang off an active post only.
	if _, err := h.service.GetPost(r.Context(), postID); err != nil {
		renderError(w, r, err)
		return
	}

	comments, err := h.service.ListComments(r.Context(), postID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	views := make([]*simpleblog.CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, h.service.CommentSnapshot(c))
	}
	render.JSON(w, r, views)
}

// DeleteComment moves a comment to the trash
func (h *BlogHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	h.commentTransition(w, r, h.service.DeleteComment)
}

// ForceDeleteComment permanently deletes a trashed comment
func (h *BlogHandler) ForceDeleteComment(w http.ResponseWriter, r *http.Request) {
	h.commentTransition(w, r, h.service.ForceDeleteComment)
}

func (h *BlogHandler) commentTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID, id uuid.UUID) error) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := urlUUID(r, "commentID")
	if err != nil {
		http.Error(w, "invalid comment ID", http.StatusBadRequest)
		return
	}

	if err := op(r.Context(), actor, id); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// RestoreComment restores a trashed comment authored by the authenticated
// account
func (h *BlogHandler) RestoreComment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := urlUUID(r, "commentID")
	if err != nil {
		http.Error(w, "invalid comment ID", http.StatusBadRequest)
		return
	}

	comment, err := h.service.RestoreComment(r.Context(), actor, id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, h.service.CommentSnapshot(comment))
}

// ServeAsset streams a stored cover image variant
func (h *BlogHandler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	ref := simpleblog.AssetRef(chi.URLParam(r, "ref"))
	variant := simpleblog.CoverVariant(chi.URLParam(r, "variant"))
	if variant != simpleblog.VariantOriginal && variant != simpleblog.VariantThumb {
		http.Error(w, "unknown variant", http.StatusNotFound)
		return
	}

	rc, err := h.service.OpenCoverVariant(r.Context(), ref, variant)
	if err != nil {
		renderError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("asset stream interrupted", "ref", string(ref), "error", err)
	}
}

func (h *BlogHandler) snapshotPosts(r *http.Request, posts []*simpleblog.Post) []*simpleblog.PostView {
	views := make([]*simpleblog.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, h.service.PostSnapshot(r.Context(), p))
	}
	return views
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
