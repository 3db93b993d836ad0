package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Zimam07/Sonjog/internal/domain"
	"github.com/Zimam07/Sonjog/internal/service"
)

func TestListOnlineExcludesCaller(t *testing.T) {
	users := new(MockUserRepo)
	online := new(MockOnline)
	svc := service.NewUserService(users, online)

	online.On("Online", mock.Anything).Return([]int64{1, 2}, nil)
	users.On("ListByIDs", mock.Anything, []int64{2}).Return([]*domain.User{bob}, nil)

	got, err := svc.ListOnline(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []*domain.User{bob}, got)
}

func TestListOnlinePresenceError(t *testing.T) {
	online := new(MockOnline)
	online.On("Online", mock.Anything).Return(nil, errors.New("redis down"))

	_, err := service.NewUserService(new(MockUserRepo), online).ListOnline(context.Background(), 1)
	assert.Error(t, err)
}

func TestNotificationService(t *testing.T) {
	repo := new(MockNotificationRepo)
	svc := service.NewNotificationService(repo)
	ctx := context.Background()

	notes := []*domain.Notification{
		{ID: 3, Type: "mention", UserID: 2},
		{ID: 2, Type: domain.NotificationGroupInvite, UserID: 2},
	}
	repo.On("ListForUser", mock.Anything, int64(2)).Return(notes, nil)
	repo.On("ListForUser", mock.Anything, int64(9)).Return(nil, nil)
	repo.On("MarkRead", mock.Anything, int64(2), int64(2)).Return(nil)
	repo.On("MarkRead", mock.Anything, int64(3), int64(9)).Return(domain.ErrNotFound)
	repo.On("DeleteForUser", mock.Anything, int64(2)).Return(nil)

	all, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	invites, err := svc.GroupInvites(ctx, 2)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, int64(2), invites[0].ID)

	none, err := svc.List(ctx, 9)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	require.NoError(t, svc.MarkRead(ctx, 2, 2))
	assert.ErrorIs(t, svc.MarkRead(ctx, 9, 3), domain.ErrNotFound)
	require.NoError(t, svc.Clear(ctx, 2))
	repo.AssertExpectations(t)
}
