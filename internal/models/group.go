package models

import "time"

// Group represents a study group.
type Group struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Members     []int     `db:"-" json:"members"`
}

// HasMember reports whether userID is in the group's member set.
func (g Group) HasMember(userID int) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// GroupMessage represents a message sent in a group.
type GroupMessage struct {
	ID           int       `db:"id" json:"id"`
	GroupID      int       `db:"group_id" json:"group_id"`
	FromID       int       `db:"from_id" json:"from_id"`
	Content      string    `db:"content" json:"content"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	FromUsername string    `db:"from_username" json:"from_username"`
}

// GroupEvent is emitted over WebSocket connections for groups.
type GroupEvent struct {
	Type    string        `json:"type"`
	Message *GroupMessage `json:"message,omitempty"`
}
