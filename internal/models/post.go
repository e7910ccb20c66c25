package models

import "time"

// Post is a status update written by a user.
type Post struct {
	ID             int       `db:"id" json:"id"`
	UserID         int       `db:"user_id" json:"user_id"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	Username       string    `db:"username" json:"username"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture"`
}

// Comment is a reply to a post, joined with the commenter's profile.
type Comment struct {
	ID               int       `db:"id" json:"id"`
	PostID           int       `db:"post_id" json:"post_id"`
	UserID           int       `db:"user_id" json:"user_id"`
	Content          string    `db:"content" json:"content"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	Commenter        string    `db:"commenter" json:"commenter"`
	CommenterPicture string    `db:"commenter_picture" json:"commenter_picture"`
}
