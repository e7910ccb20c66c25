package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"studygroup/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, username, password_hash, bio, profile_picture, created_at`

// UserRepository abstracts account persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, username, passwordHash string) (models.User, error)
	GetUser(ctx context.Context, userID int) (models.User, error)
	FindByUsername(ctx context.Context, username string) ([]models.User, error)
	ListOthers(ctx context.Context, userID int) ([]models.UserSummary, error)
	SearchOthers(ctx context.Context, term string, userID int) ([]models.UserSummary, error)
	UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts an account with the default bio and picture.
func (r *UserRepo) CreateUser(ctx context.Context, username, passwordHash string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `INSERT INTO users (username, password_hash, bio, profile_picture) VALUES ($1, $2, '', $3) RETURNING `+userColumns,
		username, passwordHash, models.DefaultProfilePicture)
	return user, err
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// FindByUsername returns every account registered under username.
// Usernames are not unique, so callers must handle more than one row.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users WHERE username=$1 ORDER BY id`, username)
	return users, err
}

// ListOthers returns every user except userID.
func (r *UserRepo) ListOthers(ctx context.Context, userID int) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := r.db.SelectContext(ctx, &users, `SELECT id, username, profile_picture FROM users WHERE id<>$1 ORDER BY id`, userID)
	return users, err
}

// SearchOthers matches usernames containing term, case-insensitively, excluding userID.
func (r *UserRepo) SearchOthers(ctx context.Context, term string, userID int) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := r.db.SelectContext(ctx, &users, `SELECT id, username, profile_picture FROM users WHERE username ILIKE $1 AND id<>$2 ORDER BY id`,
		containsPattern(term), userID)
	return users, err
}

// UpdateProfile overwrites each non-empty field and returns the stored row.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `UPDATE users SET
            bio = COALESCE(NULLIF($1, ''), bio),
            profile_picture = COALESCE(NULLIF($2, ''), profile_picture),
            username = COALESCE(NULLIF($3, ''), username)
        WHERE id=$4 RETURNING `+userColumns,
		update.Bio, update.ProfilePicture, update.Username, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
