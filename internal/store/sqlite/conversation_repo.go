package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/Zimam07/Sonjog/internal/domain"
)

// ConversationRepo implements domain.ConversationGateway. Conversations are
// unique per direct pair key and per group id; concurrent FindOrCreate calls
// for the same key converge on one row through ON CONFLICT DO NOTHING.
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

	now := time.Now().UTC()
	switch key.Kind {
	case domain.ConversationDirect:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversations (kind, direct_key, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (direct_key) DO NOTHING
		`, key.Kind, domain.DirectPairKey(key.Participants[0], key.Participants[1]), now, now)
	case domain.ConversationGroup:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversations (kind, group_id, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (group_id) DO NOTHING
		`, key.Kind, key.GroupID, now, now)
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
			INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id, joined_at)
			VALUES (?, ?, ?)
		`, c.ID, uid, now); err != nil {
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

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, group_id, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conv.ID, m.SenderID, m.ReceiverID, m.GroupID, m.Body, now)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conv.ID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	m.ID = id
	m.ConversationID = conv.ID
	m.CreatedAt = now
	conv.UpdatedAt = now
	return nil
}

// ListMessages returns the newest limit messages of a conversation, oldest first.
func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID int64, limit int) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, group_id, body, created_at
		FROM (
			SELECT id, conversation_id, sender_id, receiver_id, group_id, body, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
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
		query += `WHERE direct_key = ?`
		arg = domain.DirectPairKey(key.Participants[0], key.Participants[1])
	} else {
		query += `WHERE group_id = ?`
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
		WHERE conversation_id = ?
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
