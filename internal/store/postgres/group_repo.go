package postgres

import (
	"context"
	"database/sql"
	"fmt"

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

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO chat_groups (name, owner_id, is_private, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, g.Name, g.OwnerID, g.IsPrivate, g.Description).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	members := lo.Uniq(append([]int64{g.OwnerID}, g.Members...))
	for _, uid := range members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_members (group_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, g.ID, uid); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	g.Members = members
	return nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id int64) (*domain.Group, error) {
	g := &domain.Group{}
	err := r.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM chat_groups g WHERE g.id = $1`, id).Scan(groupFields(g)...)
	if err != nil {
		return nil, noRows(err, "get group")
	}
	if g.Members, err = r.members(ctx, id); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GroupRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+groupColumns+`
		FROM chat_groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY g.updated_at DESC, g.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		g := &domain.Group{}
		if err := rows.Scan(groupFields(g)...); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	for _, g := range groups {
		if g.Members, err = r.members(ctx, g.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *GroupRepo) Update(ctx context.Context, g *domain.Group) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE chat_groups
		SET name = $1, description = $2, is_private = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`, g.Name, g.Description, g.IsPrivate, g.ID).Scan(&g.UpdatedAt)
	if err != nil {
		return noRows(err, "update group")
	}
	return nil
}

func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return expectOneRow(res, "remove member")
}

func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)
	`, groupID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("is member: %w", err)
	}
	return ok, nil
}

func (r *GroupRepo) members(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY user_id
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
