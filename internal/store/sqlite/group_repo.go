package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/Zimam07/Sonjog/internal/domain"
)

type GroupRepo struct {
	db *sql.DB
}

func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

var _ domain.GroupRepository = (*GroupRepo)(nil)

const groupColumns = `g.id, g.name, g.owner_id, g.is_private, g.description, g.created_at, g.updated_at`

// Create inserts the group and its members. The owner is always a member.
func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO chat_groups (name, owner_id, is_private, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.Name, g.OwnerID, g.IsPrivate, g.Description, now, now)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	members := lo.Uniq(append([]int64{g.OwnerID}, g.Members...))
	for _, uid := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at)
			VALUES (?, ?, ?)
		`, id, uid, now); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	g.ID = id
	g.Members = members
	g.CreatedAt = now
	g.UpdatedAt = now
	return nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	g := &domain.Group{}
	err := r.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM chat_groups g WHERE g.id = ?`, id).Scan(groupFields(g)...)
	if err != nil {
		return nil, noRows(err, "get group")
	}
	if g.Members, err = r.members(ctx, id); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GroupRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM chat_groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.updated_at DESC, g.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	var groups []*domain.Group
	for rows.Next() {
		g := &domain.Group{}
		if err := rows.Scan(groupFields(g)...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	// Members are loaded after the cursor is closed: the pool has one connection.
	for _, g := range groups {
		if g.Members, err = r.members(ctx, g.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *GroupRepo) Update(ctx context.Context, g *domain.Group) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE chat_groups
		SET name = ?, description = ?, is_private = ?, updated_at = ?
		WHERE id = ?
	`, g.Name, g.Description, g.IsPrivate, now, g.ID)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if err := expectOneRow(res, "update group"); err != nil {
		return err
	}
	g.UpdatedAt = now
	return nil
}

func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`, groupID, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return expectOneRow(res, "remove member")
}

func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?
	`, groupID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is member: %w", err)
	}
	return n > 0, nil
}

func (r *GroupRepo) members(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func groupFields(g *domain.Group) []any {
	return []any{
		&g.ID,
		&g.Name,
		&g.OwnerID,
		&g.IsPrivate,
		&g.Description,
		&g.CreatedAt,
		&g.UpdatedAt,
	}
}
