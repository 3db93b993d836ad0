package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Zimam07/Sonjog/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const userColumns = `id, username, email, hashed_password, profile_picture, bio, is_active, created_at`

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, email, hashed_password, profile_picture, bio, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
		RETURNING id, is_active, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		u.Username, u.Email, u.HashedPassword, u.ProfilePicture, u.Bio,
	).Scan(&u.ID, &u.IsActive, &u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert user: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepo) ListByIDs(ctx context.Context, ids []int64) ([]*domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(userFields(u)...); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	u := &domain.User{}
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(userFields(u)...); err != nil {
		return nil, noRows(err, "get user")
	}
	return u, nil
}

func userFields(u *domain.User) []any {
	return []any{
		&u.ID,
		&u.Username,
		&u.Email,
		&u.HashedPassword,
		&u.ProfilePicture,
		&u.Bio,
		&u.IsActive,
		&u.CreatedAt,
	}
}
