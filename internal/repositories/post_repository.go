package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"studygroup/internal/models"
)

var ErrPostNotFound = errors.New("post not found")

const postSelect = `SELECT p.id, p.user_id, p.content, p.created_at, u.username, u.profile_picture
        FROM posts p
        JOIN users u ON u.id = p.user_id`

// PostRepository abstracts post persistence.
type PostRepository interface {
	CreatePost(ctx context.Context, userID int, content string) (int, error)
	DeletePost(ctx context.Context, postID int, userID int) (bool, error)
	ListPostsByUser(ctx context.Context, userID int) ([]models.Post, error)
	ListAllPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, postID int) (models.Post, error)
}

// PostRepo is a sqlx implementation of PostRepository.
type PostRepo struct {
	db *sqlx.DB
}

// NewPostRepo constructs a PostRepo.
func NewPostRepo(db *sqlx.DB) *PostRepo {
	return &PostRepo{db: db}
}

// CreatePost stores a post under userID and returns its id.
func (r *PostRepo) CreatePost(ctx context.Context, userID int, content string) (int, error) {
	var id int
	err := r.db.QueryRowxContext(ctx, `INSERT INTO posts (user_id, content) VALUES ($1, $2) RETURNING id`, userID, content).Scan(&id)
	return id, err
}

// DeletePost removes the post only when userID wrote it. It reports whether a row was deleted.
func (r *PostRepo) DeletePost(ctx context.Context, postID int, userID int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id=$1 AND user_id=$2`, postID, userID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListPostsByUser returns the posts written by userID.
func (r *PostRepo) ListPostsByUser(ctx context.Context, userID int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.SelectContext(ctx, &posts, postSelect+` WHERE p.user_id=$1 ORDER BY p.id DESC`, userID)
	return posts, err
}

// ListAllPosts returns every post from every user.
func (r *PostRepo) ListAllPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.SelectContext(ctx, &posts, postSelect+` ORDER BY p.id DESC`)
	return posts, err
}

// GetPost fetches one post with its author.
func (r *PostRepo) GetPost(ctx context.Context, postID int) (models.Post, error) {
	var post models.Post
	err := r.db.GetContext(ctx, &post, postSelect+` WHERE p.id=$1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, ErrPostNotFound
	}
	return post, err
}
