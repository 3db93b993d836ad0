package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/samber/lo"

	"github.com/Zimam07/Sonjog/internal/domain"
)

// ConversationRepo implements domain.ConversationGateway on PostgreSQL.
// The unique direct_key and group_id columns make FindOrCreate converge on a
// single row under concurrent callers.
type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationGateway = (*ConversationRepo)(nil)

func (r *ConversationRepo) FindOrCreate(ctx context.Context, key domain.ConversationKey) (*domain.Conversation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	switch key.Kind {
	case domain.ConversationDirect:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversations (kind, direct_key)
			VALUES ($1, $2)
			ON CONFLICT (direct_key) DO NOTHING
		`, string(key.Kind), domain.DirectPairKey(key.Participants[0], key.Participants[1]))
	case domain.ConversationGroup:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversations (kind, group_id)
			VALUES ($1, $2)
			ON CONFLICT (group_id) DO NOTHING
		`, string(key.Kind), key.GroupID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	c, err := r.find(ctx, tx, key)
	if err != nil {
		return nil, err
	}

	for _, uid := range lo.Uniq(key.Participants) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, c.ID, uid); err != nil {
			return nil, fmt.Errorf("insert participant: %w", err)
		}
	}

	if c.Participants, err = r.participants(ctx, tx, c.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) Find(ctx context.Context, key domain.ConversationKey) (*domain.Conversation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	c, err := r.find(ctx, r.db, key)
	if err != nil {
		return nil, err
	}
	if c.Participants, err = r.participants(ctx, r.db, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ConversationRepo) AppendMessage(ctx context.Context, conv *domain.Conversation, m *domain.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, group_id, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, conv.ID, m.SenderID, m.ReceiverID, m.GroupID, m.Body).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = $1 WHERE id = $2`, m.CreatedAt, conv.ID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	m.ConversationID = conv.ID
	conv.UpdatedAt = m.CreatedAt
	return nil
}

func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID int64, limit int) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, receiver_id, group_id, body, created_at
		FROM (
			SELECT id, conversation_id, sender_id, receiver_id, group_id, body, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.ReceiverID,
			&m.GroupID,
			&m.Body,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) find(ctx context.Context, q querier, key domain.ConversationKey) (*domain.Conversation, error) {
	query := `SELECT id, kind, group_id, direct_key, created_at, updated_at FROM conversations `
	var arg any
	if key.Kind == domain.ConversationDirect {
		query += `WHERE direct_key = $1`
		arg = domain.DirectPairKey(key.Participants[0], key.Participants[1])
	} else {
		query += `WHERE group_id = $1`
		arg = key.GroupID
	}

	c := &domain.Conversation{}
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&c.ID,
		&c.Kind,
		&c.GroupID,
		&c.DirectKey,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, noRows(err, "find conversation")
	}
	return c, nil
}

func (r *ConversationRepo) participants(ctx context.Context, q querier, conversationID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY user_id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
