package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Zimam07/Sonjog/internal/domain"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

var _ domain.NotificationRepository = (*NotificationRepo)(nil)

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (type, user_id, from_user_id, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.Type, n.UserID, n.FromUserID, n.Message, false, now)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	n.Read = false
	n.CreatedAt = now
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, user_id, from_user_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var res []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(
			&n.ID,
			&n.Type,
			&n.UserID,
			&n.FromUserID,
			&n.Message,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

// MarkRead marks a notification owned by userID as read. Someone else's
// notification is reported as not found.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?
	`, true, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return expectOneRow(res, "mark read")
}

func (r *NotificationRepo) DeleteForUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}
