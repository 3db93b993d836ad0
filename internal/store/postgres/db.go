package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Zimam07/Sonjog/internal/domain"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the Sonjog schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users
		`CREATE TABLE IF NOT EXISTS users (
			id               BIGSERIAL    PRIMARY KEY,
			username         VARCHAR(50)  UNIQUE NOT NULL,
			email            VARCHAR(100) UNIQUE NOT NULL,
			hashed_password  VARCHAR(255) NOT NULL,
			profile_picture  TEXT         NOT NULL DEFAULT '',
			bio              TEXT         NOT NULL DEFAULT '',
			is_active        BOOLEAN      NOT NULL DEFAULT TRUE,
			created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Groups and membership
		`CREATE TABLE IF NOT EXISTS chat_groups (
			id          BIGSERIAL    PRIMARY KEY,
			name        VARCHAR(100) NOT NULL,
			owner_id    BIGINT       NOT NULL REFERENCES users(id),
			is_private  BOOLEAN      NOT NULL DEFAULT FALSE,
			description TEXT         NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id  BIGINT      NOT NULL REFERENCES chat_groups(id) ON DELETE CASCADE,
			user_id   BIGINT      NOT NULL REFERENCES users(id),
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (group_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS group_invites (
			id              BIGSERIAL   PRIMARY KEY,
			group_id        BIGINT      NOT NULL REFERENCES chat_groups(id) ON DELETE CASCADE,
			invited_by      BIGINT      NOT NULL REFERENCES users(id),
			invited_user_id BIGINT      NOT NULL REFERENCES users(id),
			status          VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (group_id, invited_user_id)
		)`,

		// Conversations: one per direct pair, one per group
		`CREATE TABLE IF NOT EXISTS conversations (
			id         BIGSERIAL   PRIMARY KEY,
			kind       VARCHAR(16) NOT NULL,
			group_id   BIGINT      UNIQUE REFERENCES chat_groups(id) ON DELETE CASCADE,
			direct_key VARCHAR(64) UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id BIGINT      NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			user_id         BIGINT      NOT NULL REFERENCES users(id),
			joined_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (conversation_id, user_id)
		)`,

		// Messages
		`CREATE TABLE IF NOT EXISTS messages (
			id              BIGSERIAL   PRIMARY KEY,
			conversation_id BIGINT      NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_id       BIGINT      NOT NULL REFERENCES users(id),
			receiver_id     BIGINT,
			group_id        BIGINT,
			body            TEXT        NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Notifications
		`CREATE TABLE IF NOT EXISTS notifications (
			id           BIGSERIAL   PRIMARY KEY,
			type         VARCHAR(32) NOT NULL,
			user_id      BIGINT      NOT NULL REFERENCES users(id),
			from_user_id BIGINT,
			message      TEXT        NOT NULL DEFAULT '',
			is_read      BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_group_invites_user ON group_invites(invited_user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_user ON conversation_participants(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func noRows(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
