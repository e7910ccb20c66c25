package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"studygroup/internal/config"
)

// duplicateColumn is the PostgreSQL SQLSTATE for "column already exists".
const duplicateColumn = "42701"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL,
            password_hash TEXT NOT NULL,
            bio TEXT NOT NULL DEFAULT '',
            profile_picture TEXT NOT NULL DEFAULT '/images/user.png',
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS posts (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL REFERENCES users(id),
            content TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS comments (
            id SERIAL PRIMARY KEY,
            post_id INT NOT NULL REFERENCES posts(id),
            user_id INT NOT NULL REFERENCES users(id),
            content TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS groups (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS group_members (
            group_id INT NOT NULL REFERENCES groups(id),
            user_id INT NOT NULL REFERENCES users(id),
            UNIQUE(group_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS group_messages (
            id SERIAL PRIMARY KEY,
            group_id INT NOT NULL REFERENCES groups(id),
            from_id INT NOT NULL REFERENCES users(id),
            content TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            from_id INT NOT NULL REFERENCES users(id),
            to_id INT NOT NULL REFERENCES users(id),
            content TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
}

const addGroupDescription = `ALTER TABLE groups ADD COLUMN description TEXT NOT NULL DEFAULT ''`

// Connect initializes the database connection and runs migrations.
func Connect(ctx context.Context, cfg config.DBConfig, logger *logrus.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := Migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// Migrate creates any missing tables and applies the additive column
// migrations. It is safe to run on every startup.
func Migrate(ctx context.Context, db *sqlx.DB, logger *logrus.Logger) error {
	for _, m := range schema {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}

	if _, err := db.ExecContext(ctx, addGroupDescription); err != nil && !isDuplicateColumn(err) {
		logger.WithError(err).Error("error adding description column")
	}

	logger.Info("database migrations applied")
	return nil
}

func isDuplicateColumn(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == duplicateColumn
	}
	return false
}
