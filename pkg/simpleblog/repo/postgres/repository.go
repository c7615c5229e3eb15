package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simple-blog/pkg/simpleblog"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simpleblog.Repository using PostgreSQL.
//
// Every mutation is a single conditional statement, so each call runs in its
// own implicit transaction and state transitions are first-to-commit-wins
// under row-level locking.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const postColumns = `id, owner_id, title, content, cover_image_ref, created_at, updated_at, trashed_at`

func scanPost(row pgx.Row) (*simpleblog.Post, error) {
	var (
		post     simpleblog.Post
		coverRef string
	)
	err := row.Scan(
		&post.ID, &post.OwnerID, &post.Title, &post.Content, &coverRef,
		&post.CreatedAt, &post.UpdatedAt, &post.TrashedAt)
	if err != nil {
		return nil, err
	}
	post.CoverImageRef = simpleblog.AssetRef(coverRef)
	post.State = simpleblog.StateActive
	if post.TrashedAt != nil {
		post.State = simpleblog.StateTrashed
	}
	return &post, nil
}

// Post operations

func (r *Repository) CreatePost(ctx context.Context, post *simpleblog.Post) error {
	query := `
		INSERT INTO posts (id, owner_id, title, content, cover_image_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		post.ID, post.OwnerID, post.Title, post.Content,
		string(post.CoverImageRef), post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*simpleblog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND trashed_at IS NULL`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleblog.ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (r *Repository) GetAnyPost(ctx context.Context, id uuid.UUID) (*simpleblog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleblog.ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *simpleblog.Post) error {
	query := `
		UPDATE posts SET title = $2, content = $3, cover_image_ref = $4, updated_at = $5
		WHERE id = $1 AND trashed_at IS NULL`

	tag, err := r.db.Exec(ctx, query,
		post.ID, post.Title, post.Content, string(post.CoverImageRef), post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyPost(ctx, post.ID)
	}
	return nil
}

func (r *Repository) ListPosts(ctx context.Context, filter simpleblog.ListPostsFilter) ([]*simpleblog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE trashed_at IS NULL`
	args := []interface{}{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (title ILIKE $%d OR content ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *Repository) ListTrashedPosts(ctx context.Context, ownerID uuid.UUID) ([]*simpleblog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE owner_id = $1 AND trashed_at IS NOT NULL
		ORDER BY trashed_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *Repository) SoftDeletePost(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE posts SET trashed_at = $2, updated_at = $2 WHERE id = $1 AND trashed_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("soft delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyPost(ctx, id)
	}
	return nil
}

func (r *Repository) RestorePost(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE posts SET trashed_at = NULL, updated_at = NOW() WHERE id = $1 AND trashed_at IS NOT NULL`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("restore post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyPost(ctx, id)
	}
	return nil
}

func (r *Repository) HardDeletePost(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM posts WHERE id = $1 AND trashed_at IS NOT NULL`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("hard delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyPost(ctx, id)
	}
	return nil
}

// classifyPost distinguishes not-found from wrong-state after a conditional
// statement matched no rows.
func (r *Repository) classifyPost(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return simpleblog.ErrPostNotFound
	}
	return simpleblog.ErrInvalidState
}

func collectPosts(rows pgx.Rows) ([]*simpleblog.Post, error) {
	var result []*simpleblog.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, post)
	}
	return result, rows.Err()
}

// Comment operations

const commentColumns = `id, post_id, author_id, body, created_at, updated_at, trashed_at`

func scanComment(row pgx.Row) (*simpleblog.Comment, error) {
	var comment simpleblog.Comment
	err := row.Scan(
		&comment.ID, &comment.PostID, &comment.AuthorID, &comment.Body,
		&comment.CreatedAt, &comment.UpdatedAt, &comment.TrashedAt)
	if err != nil {
		return nil, err
	}
	comment.State = simpleblog.StateActive
	if comment.TrashedAt != nil {
		comment.State = simpleblog.StateTrashed
	}
	return &comment, nil
}

func (r *Repository) CreateComment(ctx context.Context, comment *simpleblog.Comment) error {
	query := `
		INSERT INTO comments (id, post_id, author_id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		comment.ID, comment.PostID, comment.AuthorID, comment.Body,
		comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return simpleblog.ErrPostNotFound
		}
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *Repository) GetComment(ctx context.Context, id uuid.UUID) (*simpleblog.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1 AND trashed_at IS NULL`

	comment, err := scanComment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleblog.ErrCommentNotFound
		}
		return nil, err
	}
	return comment, nil
}

func (r *Repository) GetAnyComment(ctx context.Context, id uuid.UUID) (*simpleblog.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	comment, err := scanComment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleblog.ErrCommentNotFound
		}
		return nil, err
	}
	return comment, nil
}

func (r *Repository) ListComments(ctx context.Context, postID uuid.UUID) ([]*simpleblog.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments
		WHERE post_id = $1 AND trashed_at IS NULL
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*simpleblog.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

func (r *Repository) SoftDeleteComment(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE comments SET trashed_at = $2, updated_at = $2 WHERE id = $1 AND trashed_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("soft delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyComment(ctx, id)
	}
	return nil
}

func (r *Repository) RestoreComment(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE comments SET trashed_at = NULL, updated_at = NOW() WHERE id = $1 AND trashed_at IS NOT NULL`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("restore comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyComment(ctx, id)
	}
	return nil
}

func (r *Repository) HardDeleteComment(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM comments WHERE id = $1 AND trashed_at IS NOT NULL`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("hard delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyComment(ctx, id)
	}
	return nil
}

func (r *Repository) classifyComment(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return simpleblog.ErrCommentNotFound
	}
	return simpleblog.ErrInvalidState
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, user *simpleblog.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return simpleblog.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*simpleblog.User, error) {
	query := `SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id = $1`

	var user simpleblog.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleblog.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*simpleblog.User, error) {
	query := `SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = $1`

	var user simpleblog.User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleblog.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
