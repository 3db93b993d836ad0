package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/Zimam07/Sonjog/internal/domain"
)

type NotificationService struct {
	notifications domain.NotificationRepository
}

func NewNotificationService(notifications domain.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID int64) ([]*domain.Notification, error) {
	notes, err := s.notifications.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if notes == nil {
		notes = []*domain.Notification{}
	}
	return notes, nil
}

func (s *NotificationService) GroupInvites(ctx context.Context, userID int64) ([]*domain.Notification, error) {
	notes, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(notes, func(n *domain.Notification, _ int) bool {
		return n.Type == domain.NotificationGroupInvite
	}), nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if err := s.notifications.MarkRead(ctx, notificationID, userID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

func (s *NotificationService) Clear(ctx context.Context, userID int64) error {
	if err := s.notifications.DeleteForUser(ctx, userID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}
