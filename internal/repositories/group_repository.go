package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"studygroup/internal/models"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupRepository abstracts group and membership persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, creatorID int, name string, description string) (models.Group, error)
	ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error)
	GetGroup(ctx context.Context, groupID int) (models.Group, error)
	IsMember(ctx context.Context, groupID int, userID int) (bool, error)
	ListMembers(ctx context.Context, groupID int) ([]models.UserSummary, error)
	SearchNonMembers(ctx context.Context, groupID int, term string) ([]models.UserSummary, error)
	AddMember(ctx context.Context, groupID int, userID int) error
	RemoveMember(ctx context.Context, groupID int, userID int) error
	UpdateGroup(ctx context.Context, groupID int, name string, description string) error
	DeleteGroup(ctx context.Context, groupID int) error
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// groupRow is a group with its member ids aggregated by the query.
type groupRow struct {
	ID          int           `db:"id"`
	Name        string        `db:"name"`
	Description string        `db:"description"`
	CreatedAt   time.Time     `db:"created_at"`
	Members     pq.Int64Array `db:"members"`
}

func (g groupRow) toModel() models.Group {
	members := make([]int, 0, len(g.Members))
	for _, id := range g.Members {
		members = append(members, int(id))
	}
	return models.Group{ID: g.ID, Name: g.Name, Description: g.Description, CreatedAt: g.CreatedAt, Members: members}
}

// CreateGroup creates a group with the creator as its first member, atomically.
func (r *GroupRepo) CreateGroup(ctx context.Context, creatorID int, name string, description string) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.QueryRowxContext(ctx, `INSERT INTO groups (name, description) VALUES ($1, $2) RETURNING id, name, description, created_at`, name, description).
		Scan(&group.ID, &group.Name, &group.Description, &group.CreatedAt); err != nil {
		return models.Group{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.ID, creatorID); err != nil {
		return models.Group{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	group.Members = []int{creatorID}
	return group, nil
}

// ListGroupsForUser returns the groups that include the user, each with its full member set.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	var rows []groupRow
	err := r.db.SelectContext(ctx, &rows, `SELECT g.id, g.name, g.description, g.created_at,
            array_agg(m.user_id ORDER BY m.user_id) AS members
        FROM groups g
        JOIN group_members self ON self.group_id = g.id AND self.user_id=$1
        JOIN group_members m ON m.group_id = g.id
        GROUP BY g.id
        ORDER BY g.id`, userID)
	if err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.toModel())
	}
	return groups, nil
}

// GetGroup fetches a single group with its member ids. A group without members has an empty set.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	var row groupRow
	err := r.db.GetContext(ctx, &row, `SELECT g.id, g.name, g.description, g.created_at,
            array_remove(array_agg(m.user_id ORDER BY m.user_id), NULL) AS members
        FROM groups g
        LEFT JOIN group_members m ON m.group_id = g.id
        WHERE g.id=$1
        GROUP BY g.id`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	if err != nil {
		return models.Group{}, err
	}
	return row.toModel(), nil
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// ListMembers returns the profiles of the group's members.
func (r *GroupRepo) ListMembers(ctx context.Context, groupID int) ([]models.UserSummary, error) {
	var members []models.UserSummary
	err := r.db.SelectContext(ctx, &members, `SELECT u.id, u.username, u.profile_picture
        FROM group_members m
        JOIN users u ON u.id = m.user_id
        WHERE m.group_id=$1
        ORDER BY u.id`, groupID)
	return members, err
}

// SearchNonMembers matches usernames containing term among users outside the group.
func (r *GroupRepo) SearchNonMembers(ctx context.Context, groupID int, term string) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := r.db.SelectContext(ctx, &users, `SELECT id, username, profile_picture
        FROM users
        WHERE username ILIKE $1
        AND id NOT IN (SELECT user_id FROM group_members WHERE group_id=$2)
        ORDER BY id`, containsPattern(term), groupID)
	return users, err
}

// AddMember inserts the membership; an existing pair is left untouched.
func (r *GroupRepo) AddMember(ctx context.Context, groupID int, userID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)
        ON CONFLICT (group_id, user_id) DO NOTHING`, groupID, userID)
	return err
}

// RemoveMember deletes the membership if present.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID int, userID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	return err
}

// UpdateGroup overwrites the group's name and description.
func (r *GroupRepo) UpdateGroup(ctx context.Context, groupID int, name string, description string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE groups SET name=$1, description=$2 WHERE id=$3`, name, description, groupID)
	return err
}

// DeleteGroup removes the group's messages, then its memberships, then the
// group itself. Either all three deletes apply or none do.
func (r *GroupRepo) DeleteGroup(ctx context.Context, groupID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	steps := []string{
		`DELETE FROM group_messages WHERE group_id=$1`,
		`DELETE FROM group_members WHERE group_id=$1`,
		`DELETE FROM groups WHERE id=$1`,
	}
	for _, stmt := range steps {
		if _, err = tx.ExecContext(ctx, stmt, groupID); err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}
