package simpleblog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// service implements the Service interface
type service struct {
	repository Repository
	covers     *CoverImageStore
	guard      Guard
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithCoverImageStore sets the cover image store for the service. Without
// one, posts cannot carry cover images.
func WithCoverImageStore(covers *CoverImageStore) Option {
	return func(s *service) {
		s.covers = covers
	}
}

// WithGuard sets the authorization guard for the service
func WithGuard(guard Guard) Option {
	return func(s *service) {
		s.guard = guard
	}
}

// WithLogger sets the logger used for non-fatal failures (blob purges)
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		guard:  NewGuard(),
		logger: slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// User operations

func (s *service) RegisterUser(ctx context.Context, req RegisterUserRequest) (*User, error) {
	name := sanitizeText(req.Name)
	email := normalizeEmail(req.Email)

	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidationFailed)
	case email == "":
		return nil, fmt.Errorf("%w: email must not be empty", ErrValidationFailed)
	case len(req.Password) < minPasswordLength:
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidationFailed, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repository.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repository.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repository.GetUser(ctx, id)
}

// Post operations

func (s *service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	title := sanitizeText(req.Title)
	content := sanitizeText(req.Content)

	switch {
	case req.OwnerID == uuid.Nil:
		return nil, fmt.Errorf("%w: owner id is required", ErrValidationFailed)
	case title == "":
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidationFailed)
	case content == "":
		return nil, fmt.Errorf("%w: content must not be empty", ErrValidationFailed)
	}

	now := time.Now().UTC()
	post := &Post{
		ID:        uuid.New(),
		OwnerID:   req.OwnerID,
		Title:     title,
		Content:   content,
		State:     StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repository.CreatePost(ctx, post); err != nil {
		return nil, &PostError{PostID: post.ID, Op: "create", Err: err}
	}

	if req.Image == nil {
		return post, nil
	}

	// The row is already committed; an image-store failure retains the post
	// and is reported as a distinguishable partial-success error alongside
	// the created entity.
	ref, err := s.storeCover(ctx, req.Image)
	if err != nil {
		return post, &PostError{PostID: post.ID, Op: "store_cover", Err: err}
	}

	post.CoverImageRef = ref
	post.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdatePost(ctx, post); err != nil {
		// Persisting the ref failed: purge the just-stored asset so the
		// slot does not leak, then report the partial success.
		if perr := s.covers.Purge(ctx, ref); perr != nil {
			s.logger.Warn("failed to purge unattached cover image", "post_id", post.ID, "ref", string(ref), "error", perr)
		}
		post.CoverImageRef = ""
		return post, &PostError{PostID: post.ID, Op: "attach_cover", Err: err}
	}

	return post, nil
}

func (s *service) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	return s.repository.GetPost(ctx, id)
}

func (s *service) ListPosts(ctx context.Context, req ListPostsRequest) ([]*Post, error) {
	filter := ListPostsFilter{
		Search: req.Search,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = 15
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repository.ListPosts(ctx, filter)
}

func (s *service) ListTrashedPosts(ctx context.Context, actorID uuid.UUID) ([]*Post, error) {
	if actorID == uuid.Nil {
		return nil, ErrForbidden
	}
	return s.repository.ListTrashedPosts(ctx, actorID)
}

func (s *service) UpdatePost(ctx context.Context, actorID uuid.UUID, req UpdatePostRequest) (*Post, error) {
	post, err := s.repository.GetAnyPost(ctx, req.PostID)
	if err != nil {
		return nil, &PostError{PostID: req.PostID, Op: "update", Err: err}
	}
	if post.State != StateActive {
		return nil, &PostError{PostID: req.PostID, Op: "update", Err: ErrInvalidState}
	}
	if !s.guard.CanMutate(actorID, post.OwnerID) {
		return nil, &PostError{PostID: req.PostID, Op: "update", Err: ErrForbidden}
	}

	if req.Title != nil {
		title := sanitizeText(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrValidationFailed)
		}
		post.Title = title
	}
	if req.Content != nil {
		content := sanitizeText(*req.Content)
		if content == "" {
			return nil, fmt.Errorf("%w: content must not be empty", ErrValidationFailed)
		}
		post.Content = content
	}

	// Replace ordering: store the new asset first, persist the new ref, and
	// only then delete the old asset. A failure anywhere before the persist
	// leaves the old asset and the post's ref exactly as they were.
	oldRef := post.CoverImageRef
	if req.Image != nil {
		ref, err := s.storeCover(ctx, req.Image)
		if err != nil {
			return nil, &PostError{PostID: post.ID, Op: "replace_cover", Err: err}
		}
		post.CoverImageRef = ref
	}

	post.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdatePost(ctx, post); err != nil {
		if req.Image != nil {
			if perr := s.covers.Purge(ctx, post.CoverImageRef); perr != nil {
				s.logger.Warn("failed to purge unattached cover image", "post_id", post.ID, "ref", string(post.CoverImageRef), "error", perr)
			}
		}
		return nil, &PostError{PostID: post.ID, Op: "update", Err: err}
	}

	if req.Image != nil && oldRef != "" {
		if err := s.covers.Purge(ctx, oldRef); err != nil {
			s.logger.Warn("failed to purge replaced cover image", "post_id", post.ID, "ref", string(oldRef), "error", err)
		}
	}

	return post, nil
}

func (s *service) DeletePost(ctx context.Context, actorID, id uuid.UUID) error {
	post, err := s.repository.GetAnyPost(ctx, id)
	if err != nil {
		return &PostError{PostID: id, Op: "delete", Err: err}
	}
	if post.State != StateActive {
		return &PostError{PostID: id, Op: "delete", Err: ErrInvalidState}
	}
	if !s.guard.CanMutate(actorID, post.OwnerID) {
		return &PostError{PostID: id, Op: "delete", Err: ErrForbidden}
	}

	// The cover image stays attached so a restore brings it back intact.
	if err := s.repository.SoftDeletePost(ctx, id, time.Now().UTC()); err != nil {
		return &PostError{PostID: id, Op: "delete", Err: err}
	}
	return nil
}

func (s *service) RestorePost(ctx context.Context, actorID, id uuid.UUID) (*Post, error) {
	post, err := s.repository.GetAnyPost(ctx, id)
	if err != nil {
		return nil, &PostError{PostID: id, Op: "restore", Err: err}
	}
	if post.State != StateTrashed {
		return nil, &PostError{PostID: id, Op: "restore", Err: ErrInvalidState}
	}
	if !s.guard.CanMutate(actorID, post.OwnerID) {
		return nil, &PostError{PostID: id, Op: "restore", Err: ErrForbidden}
	}

	if err := s.repository.RestorePost(ctx, id); err != nil {
		return nil, &PostError{PostID: id, Op: "restore", Err: err}
	}
	return s.repository.GetPost(ctx, id)
}

func (s *service) ForceDeletePost(ctx context.Context, actorID, id uuid.UUID) error {
	post, err := s.repository.GetAnyPost(ctx, id)
	if err != nil {
		return &PostError{PostID: id, Op: "force_delete", Err: err}
	}
	if post.State != StateTrashed {
		return &PostError{PostID: id, Op: "force_delete", Err: ErrInvalidState}
	}
	if !s.guard.CanMutate(actorID, post.OwnerID) {
		return &PostError{PostID: id, Op: "force_delete", Err: ErrForbidden}
	}

	if err := s.repository.HardDeletePost(ctx, id); err != nil {
		return &PostError{PostID: id, Op: "force_delete", Err: err}
	}

	// The row is gone; the relational state is the source of truth. A purge
	// failure leaves an orphaned blob for a later reconciliation sweep and
	// must not fail the operation.
	if post.CoverImageRef != "" && s.covers != nil {
		if err := s.covers.Purge(ctx, post.CoverImageRef); err != nil {
			s.logger.Error("failed to purge cover image of deleted post", "post_id", id, "ref", string(post.CoverImageRef), "error", err)
		}
	}
	return nil
}

// Comment operations

func (s *service) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	body := sanitizeText(req.Body)
	switch {
	case req.AuthorID == uuid.Nil:
		return nil, fmt.Errorf("%w: author id is required", ErrValidationFailed)
	case body == "":
		return nil, fmt.Errorf("%w: body must not be empty", ErrValidationFailed)
	}

	// Commenting requires an active post.
	if _, err := s.repository.GetPost(ctx, req.PostID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	comment := &Comment{
		ID:        uuid.New(),
		PostID:    req.PostID,
		AuthorID:  req.AuthorID,
		Body:      body,
		State:     StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repository.CreateComment(ctx, comment); err != nil {
		return nil, &CommentError{CommentID: comment.ID, Op: "create", Err: err}
	}
	return comment, nil
}

func (s *service) ListComments(ctx context.Context, postID uuid.UUID) ([]*Comment, error) {
	return s.repository.ListComments(ctx, postID)
}

func (s *service) DeleteComment(ctx context.Context, actorID, id uuid.UUID) error {
	comment, err := s.repository.GetAnyComment(ctx, id)
	if err != nil {
		return &CommentError{CommentID: id, Op: "delete", Err: err}
	}
	if comment.State != StateActive {
		return &CommentError{CommentID: id, Op: "delete", Err: ErrInvalidState}
	}
	if !s.guard.CanMutate(actorID, comment.AuthorID) {
		return &CommentError{CommentID: id, Op: "delete", Err: ErrForbidden}
	}

	if err := s.repository.SoftDeleteComment(ctx, id, time.Now().UTC()); err != nil {
		return &CommentError{CommentID: id, Op: "delete", Err: err}
	}
	return nil
}

func (s *service) RestoreComment(ctx context.Context, actorID, id uuid.UUID) (*Comment, error) {
	comment, err := s.repository.GetAnyComment(ctx, id)
	if err != nil {
		return nil, &CommentError{CommentID: id, Op: "restore", Err: err}
	}
	if comment.State != StateTrashed {
		return nil, &CommentError{CommentID: id, Op: "restore", Err: ErrInvalidState}
	}
	if !s.guard.CanMutate(actorID, comment.AuthorID) {
		return nil, &CommentError{CommentID: id, Op: "restore", Err: ErrForbidden}
	}

	if err := s.repository.RestoreComment(ctx, id); err != nil {
		return nil, &CommentError{CommentID: id, Op: "restore", Err: err}
	}
	return s.repository.GetComment(ctx, id)
}

func (s *service) ForceDeleteComment(ctx context.Context, actorID, id uuid.UUID) error {
	comment, err := s.repository.GetAnyComment(ctx, id)
	if err != nil {
		return &CommentError{CommentID: id, Op: "force_delete", Err: err}
	}
	if comment.State != StateTrashed {
		return &CommentError{CommentID: id, Op: "force_delete", Err: ErrInvalidState}
	}
	if !s.guard.CanMutate(actorID, comment.AuthorID) {
		return &CommentError{CommentID: id, Op: "force_delete", Err: ErrForbidden}
	}

	if err := s.repository.HardDeleteComment(ctx, id); err != nil {
		return &CommentError{CommentID: id, Op: "force_delete", Err: err}
	}
	return nil
}

// Cover image access

func (s *service) OpenCoverVariant(ctx context.Context, ref AssetRef, variant CoverVariant) (io.ReadCloser, error) {
	if s.covers == nil {
		return nil, ErrAssetNotFound
	}
	return s.covers.Open(ctx, ref, variant)
}

// Snapshot shaping

func (s *service) PostSnapshot(ctx context.Context, post *Post) *PostView {
	view := &PostView{
		ID:        post.ID,
		OwnerID:   post.OwnerID,
		Title:     post.Title,
		Content:   post.Content,
		State:     post.State,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
		TrashedAt: post.TrashedAt,
	}

	if post.CoverImageRef != "" && s.covers != nil {
		url, err := s.covers.URLFor(ctx, post.CoverImageRef, VariantOriginal)
		if err != nil {
			s.logger.Warn("failed to resolve cover image url", "post_id", post.ID, "error", err)
		}
		view.CoverImageURL = url

		thumb, err := s.covers.URLFor(ctx, post.CoverImageRef, VariantThumb)
		if err == nil {
			view.CoverImageThumbURL = thumb
		}
	}
	return view
}

func (s *service) CommentSnapshot(comment *Comment) *CommentView {
	return &CommentView{
		ID:        comment.ID,
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		State:     comment.State,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
		TrashedAt: comment.TrashedAt,
	}
}

// Helpers

func (s *service) storeCover(ctx context.Context, image io.Reader) (AssetRef, error) {
	if s.covers == nil {
		return "", fmt.Errorf("%w: no cover image store configured", ErrStorageUnavailable)
	}
	return s.covers.Store(ctx, image)
}
