package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"studygroup/internal/models"
)

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, fromID int, toID int, content string) (models.Message, error)
	ListConversation(ctx context.Context, userID int, otherID int) ([]models.Message, error)
	ListContacts(ctx context.Context, userID int) ([]models.UserSummary, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a direct message and returns it with the sender's profile.
func (r *MessageRepo) CreateMessage(ctx context.Context, fromID int, toID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `WITH ins AS (
            INSERT INTO messages (from_id, to_id, content) VALUES ($1, $2, $3)
            RETURNING id, from_id, to_id, content, created_at
        )
        SELECT ins.id, ins.from_id, ins.to_id, ins.content, ins.created_at,
            u.username AS from_username, u.profile_picture AS from_picture
        FROM ins JOIN users u ON u.id = ins.from_id`, fromID, toID, content)
	return msg, err
}

// ListConversation returns every message between the two users, in either direction, in insertion order.
func (r *MessageRepo) ListConversation(ctx context.Context, userID int, otherID int) ([]models.Message, error) {
	query := `SELECT m.id, m.from_id, m.to_id, m.content, m.created_at,
            u.username AS from_username, u.profile_picture AS from_picture
        FROM messages m
        JOIN users u ON u.id = m.from_id
        WHERE (m.from_id=$1 AND m.to_id=$2) OR (m.from_id=$2 AND m.to_id=$1)
        ORDER BY m.id ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, userID, otherID)
	return msgs, err
}

// ListContacts returns each other user the caller has exchanged at least one message with.
func (r *MessageRepo) ListContacts(ctx context.Context, userID int) ([]models.UserSummary, error) {
	var contacts []models.UserSummary
	err := r.db.SelectContext(ctx, &contacts, `SELECT DISTINCT u.id, u.username, u.profile_picture
        FROM users u
        JOIN messages m ON (m.from_id = u.id AND m.to_id=$1) OR (m.to_id = u.id AND m.from_id=$1)
        WHERE u.id<>$1
        ORDER BY u.id`, userID)
	return contacts, err
}
