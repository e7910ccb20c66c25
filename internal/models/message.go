package models

import "time"

// Message is a direct message between two users.
type Message struct {
	ID           int       `db:"id" json:"id"`
	FromID       int       `db:"from_id" json:"from_id"`
	ToID         int       `db:"to_id" json:"to_id"`
	Content      string    `db:"content" json:"content"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	FromUsername string    `db:"from_username" json:"from_username"`
	FromPicture  string    `db:"from_picture" json:"from_picture"`
}

// ChatEvent is broadcasted through websockets.
type ChatEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
}
