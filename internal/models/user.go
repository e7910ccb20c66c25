package models

import "time"

// DefaultProfilePicture is assigned to every new account.
const DefaultProfilePicture = "/images/user.png"

// User is a registered account.
type User struct {
	ID             int       `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Bio            string    `db:"bio" json:"bio"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// UserSummary is the public card of a user shown in lists and search results.
type UserSummary struct {
	ID             int    `db:"id" json:"id"`
	Username       string `db:"username" json:"username"`
	ProfilePicture string `db:"profile_picture" json:"profile_picture"`
}

// ProfileUpdate carries the submitted profile fields. Empty fields keep the stored value.
type ProfileUpdate struct {
	Bio            string
	ProfilePicture string
	Username       string
}
