package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simple-blog/pkg/simpleblog"
)

// Repository implements simpleblog.Repository using in-memory storage.
// Useful for tests and development; guarded by a single RWMutex so every
// mutation is atomic with respect to readers.
type Repository struct {
	mu           sync.RWMutex
	posts        map[uuid.UUID]*simpleblog.Post
	comments     map[uuid.UUID]*simpleblog.Comment
	users        map[uuid.UUID]*simpleblog.User
	usersByEmail map[string]uuid.UUID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		posts:        make(map[uuid.UUID]*simpleblog.Post),
		comments:     make(map[uuid.UUID]*simpleblog.Comment),
		users:        make(map[uuid.UUID]*simpleblog.User),
		usersByEmail: make(map[string]uuid.UUID),
	}
}

// Post operations

func (r *Repository) CreatePost(ctx context.Context, post *simpleblog.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	postCopy := *post
	r.posts[post.ID] = &postCopy
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*simpleblog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists || post.State != simpleblog.StateActive {
		return nil, simpleblog.ErrPostNotFound
	}
	postCopy := *post
	return &postCopy, nil
}

func (r *Repository) GetAnyPost(ctx context.Context, id uuid.UUID) (*simpleblog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, simpleblog.ErrPostNotFound
	}
	postCopy := *post
	return &postCopy, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *simpleblog.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.posts[post.ID]
	if !exists {
		return simpleblog.ErrPostNotFound
	}
	if existing.State != simpleblog.StateActive {
		return simpleblog.ErrInvalidState
	}

	postCopy := *post
	r.posts[post.ID] = &postCopy
	return nil
}

func (r *Repository) ListPosts(ctx context.Context, filter simpleblog.ListPostsFilter) ([]*simpleblog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var result []*simpleblog.Post
	for _, post := range r.posts {
		if post.State != simpleblog.StateActive {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(post.Title), search) &&
			!strings.Contains(strings.ToLower(post.Content), search) {
			continue
		}
		postCopy := *post
		result = append(result, &postCopy)
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r *Repository) ListTrashedPosts(ctx context.Context, ownerID uuid.UUID) ([]*simpleblog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simpleblog.Post
	for _, post := range r.posts {
		if post.State == simpleblog.StateTrashed && post.OwnerID == ownerID {
			postCopy := *post
			result = append(result, &postCopy)
		}
	}

	// Sort by trashed_at descending
	sort.Slice(result, func(i, j int) bool {
		ti, tj := result[i].TrashedAt, result[j].TrashedAt
		if ti == nil || tj == nil {
			return tj == nil
		}
		return ti.After(*tj)
	})

	return result, nil
}

func (r *Repository) SoftDeletePost(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, exists := r.posts[id]
	if !exists {
		return simpleblog.ErrPostNotFound
	}
	if post.State != simpleblog.StateActive {
		return simpleblog.ErrInvalidState
	}

	post.State = simpleblog.StateTrashed
	post.TrashedAt = &at
	post.UpdatedAt = at
	return nil
}

func (r *Repository) RestorePost(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, exists := r.posts[id]
	if !exists {
		return simpleblog.ErrPostNotFound
	}
	if post.State != simpleblog.StateTrashed {
		return simpleblog.ErrInvalidState
	}

	post.State = simpleblog.StateActive
	post.TrashedAt = nil
	post.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) HardDeletePost(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, exists := r.posts[id]
	if !exists {
		return simpleblog.ErrPostNotFound
	}
	if post.State != simpleblog.StateTrashed {
		return simpleblog.ErrInvalidState
	}

	delete(r.posts, id)
	return nil
}

// Comment operations

func (r *Repository) CreateComment(ctx context.Context, comment *simpleblog.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[comment.PostID]; !exists {
		return simpleblog.ErrPostNotFound
	}

	commentCopy := *comment
	r.comments[comment.ID] = &commentCopy
	return nil
}

func (r *Repository) GetComment(ctx context.Context, id uuid.UUID) (*simpleblog.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comment, exists := r.comments[id]
	if !exists || comment.State != simpleblog.StateActive {
		return nil, simpleblog.ErrCommentNotFound
	}
	commentCopy := *comment
	return &commentCopy, nil
}

func (r *Repository) GetAnyComment(ctx context.Context, id uuid.UUID) (*simpleblog.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comment, exists := r.comments[id]
	if !exists {
		return nil, simpleblog.ErrCommentNotFound
	}
	commentCopy := *comment
	return &commentCopy, nil
}

func (r *Repository) ListComments(ctx context.Context, postID uuid.UUID) ([]*simpleblog.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simpleblog.Comment
	for _, comment := range r.comments {
		if comment.PostID == postID && comment.State == simpleblog.StateActive {
			commentCopy := *comment
			result = append(result, &commentCopy)
		}
	}

	// Oldest first, thread order
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *Repository) SoftDeleteComment(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, exists := r.comments[id]
	if !exists {
		return simpleblog.ErrCommentNotFound
	}
	if comment.State != simpleblog.StateActive {
		return simpleblog.ErrInvalidState
	}

	comment.State = simpleblog.StateTrashed
	comment.TrashedAt = &at
	comment.UpdatedAt = at
	return nil
}

func (r *Repository) RestoreComment(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, exists := r.comments[id]
	if !exists {
		return simpleblog.ErrCommentNotFound
	}
	if comment.State != simpleblog.StateTrashed {
		return simpleblog.ErrInvalidState
	}

	comment.State = simpleblog.StateActive
	comment.TrashedAt = nil
	comment.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) HardDeleteComment(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, exists := r.comments[id]
	if !exists {
		return simpleblog.ErrCommentNotFound
	}
	if comment.State != simpleblog.StateTrashed {
		return simpleblog.ErrInvalidState
	}

	delete(r.comments, id)
	return nil
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, user *simpleblog.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByEmail[user.Email]; exists {
		return simpleblog.ErrEmailTaken
	}

	userCopy := *user
	r.users[user.ID] = &userCopy
	r.usersByEmail[user.Email] = user.ID
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*simpleblog.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, simpleblog.ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*simpleblog.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.usersByEmail[email]
	if !exists {
		return nil, simpleblog.ErrUserNotFound
	}
	userCopy := *r.users[id]
	return &userCopy, nil
}

func paginate(posts []*simpleblog.Post, limit, offset int) []*simpleblog.Post {
	if offset > 0 {
		if offset >= len(posts) {
			return []*simpleblog.Post{}
		}
		posts = posts[offset:]
	}
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts
}
