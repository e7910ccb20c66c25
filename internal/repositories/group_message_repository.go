package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"studygroup/internal/models"
)

// GroupMessageRepository defines interactions for group messages.
type GroupMessageRepository interface {
	CreateGroupMessage(ctx context.Context, groupID int, fromID int, content string) (models.GroupMessage, error)
	ListGroupMessages(ctx context.Context, groupID int) ([]models.GroupMessage, error)
}

// GroupMessageRepo is a sqlx-backed implementation.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs a GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

// CreateGroupMessage persists a group message and returns it with the sender's username.
func (r *GroupMessageRepo) CreateGroupMessage(ctx context.Context, groupID int, fromID int, content string) (models.GroupMessage, error) {
	var msg models.GroupMessage
	err := r.db.GetContext(ctx, &msg, `WITH ins AS (
            INSERT INTO group_messages (group_id, from_id, content) VALUES ($1, $2, $3)
            RETURNING id, group_id, from_id, content, created_at
        )
        SELECT ins.id, ins.group_id, ins.from_id, ins.content, ins.created_at, u.username AS from_username
        FROM ins JOIN users u ON u.id = ins.from_id`, groupID, fromID, content)
	return msg, err
}

// ListGroupMessages returns the group's messages in insertion order.
func (r *GroupMessageRepo) ListGroupMessages(ctx context.Context, groupID int) ([]models.GroupMessage, error) {
	var msgs []models.GroupMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT gm.id, gm.group_id, gm.from_id, gm.content, gm.created_at, u.username AS from_username
        FROM group_messages gm
        JOIN users u ON u.id = gm.from_id
        WHERE gm.group_id=$1
        ORDER BY gm.id ASC`, groupID)
	return msgs, err
}
