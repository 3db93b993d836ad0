package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Zimam07/Sonjog/internal/domain"
)

type InviteRepo struct {
	db *sql.DB
}

func NewInviteRepo(db *sql.DB) *InviteRepo {
	return &InviteRepo{db: db}
}

var _ domain.InviteRepository = (*InviteRepo)(nil)

const inviteColumns = `id, group_id, invited_by, invited_user_id, status, created_at, updated_at`

func (r *InviteRepo) Create(ctx context.Context, inv *domain.GroupInvite) error {
	if inv.Status == "" {
		inv.Status = domain.InvitePending
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO group_invites (group_id, invited_by, invited_user_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, inv.GroupID, inv.InvitedBy, inv.InvitedUserID, string(inv.Status)).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert invite: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (r *InviteRepo) GetByID(ctx context.Context, id int64) (*domain.GroupInvite, error) {
	inv := &domain.GroupInvite{}
	err := r.db.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM group_invites WHERE id = $1`, id).Scan(inviteFields(inv)...)
	if err != nil {
		return nil, noRows(err, "get invite")
	}
	return inv, nil
}

func (r *InviteRepo) ListPendingForUser(ctx context.Context, userID int64) ([]*domain.GroupInvite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+inviteColumns+`
		FROM group_invites
		WHERE invited_user_id = $1 AND status = $2
		ORDER BY id DESC
	`, userID, string(domain.InvitePending))
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var res []*domain.GroupInvite
	for rows.Next() {
		inv := &domain.GroupInvite{}
		if err := rows.Scan(inviteFields(inv)...); err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		res = append(res, inv)
	}
	return res, rows.Err()
}

func (r *InviteRepo) UpdateStatus(ctx context.Context, id int64, status domain.InviteStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE group_invites SET status = $1, updated_at = NOW() WHERE id = $2
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("update invite: %w", err)
	}
	return expectOneRow(res, "update invite")
}

func inviteFields(inv *domain.GroupInvite) []any {
	return []any{
		&inv.ID,
		&inv.GroupID,
		&inv.InvitedBy,
		&inv.InvitedUserID,
		&inv.Status,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	}
}
