package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/Zimam07/Sonjog/internal/domain"
)

// OnlineLister reports the users that currently hold a registered connection.
type OnlineLister interface {
	Online(ctx context.Context) ([]int64, error)
}

type UserService struct {
	users    domain.UserRepository
	presence OnlineLister
}

func NewUserService(users domain.UserRepository, presence OnlineLister) *UserService {
	return &UserService{users: users, presence: presence}
}

func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListOnline returns the users with a live registered connection, excluding
// the caller.
func (s *UserService) ListOnline(ctx context.Context, callerID int64) ([]*domain.User, error) {
	ids, err := s.presence.Online(ctx)
	if err != nil {
		return nil, fmt.Errorf("online users: %w", err)
	}
	users, err := s.users.ListByIDs(ctx, lo.Without(ids, callerID))
	if err != nil {
		return nil, fmt.Errorf("load online users: %w", err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, nil
}
