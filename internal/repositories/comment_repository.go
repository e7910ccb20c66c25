package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"studygroup/internal/models"
)

// CommentRepository abstracts comment persistence.
type CommentRepository interface {
	CreateComment(ctx context.Context, postID int, userID int, content string) (int, error)
	ListComments(ctx context.Context, postID int) ([]models.Comment, error)
}

// CommentRepo is a sqlx-backed implementation.
type CommentRepo struct {
	db *sqlx.DB
}

// NewCommentRepo constructs a CommentRepo.
func NewCommentRepo(db *sqlx.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

// CreateComment stores a comment on postID.
func (r *CommentRepo) CreateComment(ctx context.Context, postID int, userID int, content string) (int, error) {
	var id int
	err := r.db.QueryRowxContext(ctx, `INSERT INTO comments (post_id, user_id, content) VALUES ($1, $2, $3) RETURNING id`, postID, userID, content).Scan(&id)
	return id, err
}

// ListComments returns the comments of a post in the order they were written.
func (r *CommentRepo) ListComments(ctx context.Context, postID int) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.SelectContext(ctx, &comments, `SELECT c.id, c.post_id, c.user_id, c.content, c.created_at,
            u.username AS commenter, u.profile_picture AS commenter_picture
        FROM comments c
        JOIN users u ON u.id = c.user_id
        WHERE c.post_id=$1
        ORDER BY c.id ASC`, postID)
	return comments, err
}
