package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/Zimam07/Sonjog/internal/domain"
	"github.com/Zimam07/Sonjog/internal/realtime"
)

// GroupService manages groups, their membership and invitations. Membership
// changes are mirrored onto live connections through the Deliverer.
type GroupService struct {
	groups        domain.GroupRepository
	invites       domain.InviteRepository
	notifications domain.NotificationRepository
	users         domain.UserRepository
	router        Deliverer
	log           *slog.Logger
}

func NewGroupService(
	groups domain.GroupRepository,
	invites domain.InviteRepository,
	notifications domain.NotificationRepository,
	users domain.UserRepository,
	router Deliverer,
	log *slog.Logger,
) *GroupService {
	return &GroupService{
		groups:        groups,
		invites:       invites,
		notifications: notifications,
		users:         users,
		router:        router,
		log:           log,
	}
}

type GroupInput struct {
	Name        string
	Description string
	IsPrivate   bool
	Members     []int64
}

// GroupUpdate carries the fields to change; nil fields are left as they are.
type GroupUpdate struct {
	Name        *string
	Description *string
	IsPrivate   *bool
}

// InviteNotice is the payload of the groupInviteNotification push.
type InviteNotice struct {
	InviteID  int64  `json:"inviteId"`
	GroupID   int64  `json:"groupId"`
	GroupName string `json:"groupName"`
	InvitedBy string `json:"invitedBy"`
}

func (s *GroupService) Create(ctx context.Context, ownerID int64, in GroupInput) (*domain.Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", domain.ErrInvalidInput)
	}

	members := lo.Without(lo.Uniq(in.Members), ownerID)
	if len(members) > 0 {
		found, err := s.users.ListByIDs(ctx, members)
		if err != nil {
			return nil, fmt.Errorf("check members: %w", err)
		}
		if len(found) != len(members) {
			return nil, fmt.Errorf("%w: unknown member", domain.ErrInvalidInput)
		}
	}

	g := &domain.Group{
		Name:        name,
		OwnerID:     ownerID,
		IsPrivate:   in.IsPrivate,
		Description: in.Description,
		Members:     members,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func (s *GroupService) Mine(ctx context.Context, userID int64) ([]*domain.Group, error) {
	groups, err := s.groups.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	if groups == nil {
		groups = []*domain.Group{}
	}
	return groups, nil
}

// Join adds the user to a public group. Private groups are joined by invite.
func (s *GroupService) Join(ctx context.Context, userID, groupID int64) (*domain.Group, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if lo.Contains(g.Members, userID) {
		return g, nil
	}
	if g.IsPrivate {
		return nil, fmt.Errorf("%w: group is private", domain.ErrForbidden)
	}
	if err := s.groups.AddMember(ctx, groupID, userID); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	g.Members = append(g.Members, userID)
	return g, nil
}

func (s *GroupService) Leave(ctx context.Context, userID, groupID int64) error {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}
	if g.OwnerID == userID {
		return fmt.Errorf("%w: the owner cannot leave the group", domain.ErrInvalidInput)
	}
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	s.router.EvictFromGroup(ctx, userID, groupID)
	return nil
}

func (s *GroupService) Update(ctx context.Context, userID, groupID int64, in GroupUpdate) (*domain.Group, error) {
	g, err := s.ownedGroup(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: group name is required", domain.ErrInvalidInput)
		}
		g.Name = name
	}
	if in.Description != nil {
		g.Description = *in.Description
	}
	if in.IsPrivate != nil {
		g.IsPrivate = *in.IsPrivate
	}
	if err := s.groups.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	return g, nil
}

// Invite records an invitation from the group owner, stores a notification for
// the invitee and pushes it to their live connection.
func (s *GroupService) Invite(ctx context.Context, inviterID, groupID, invitedUserID int64) (*domain.GroupInvite, error) {
	g, err := s.ownedGroup(ctx, inviterID, groupID)
	if err != nil {
		return nil, err
	}
	if lo.Contains(g.Members, invitedUserID) {
		return nil, fmt.Errorf("%w: user is already a member", domain.ErrConflict)
	}
	inviter, err := s.users.GetByID(ctx, inviterID)
	if err != nil {
		return nil, fmt.Errorf("get inviter: %w", err)
	}
	if _, err := s.users.GetByID(ctx, invitedUserID); err != nil {
		return nil, fmt.Errorf("get invitee: %w", err)
	}

	inv := &domain.GroupInvite{
		GroupID:       groupID,
		InvitedBy:     inviterID,
		InvitedUserID: invitedUserID,
		Status:        domain.InvitePending,
	}
	if err := s.invites.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}

	note := &domain.Notification{
		Type:       domain.NotificationGroupInvite,
		UserID:     invitedUserID,
		FromUserID: &inviterID,
		Message:    fmt.Sprintf("%s invited you to join %s", inviter.Username, g.Name),
	}
	if err := s.notifications.Create(ctx, note); err != nil {
		// The invite stands; the invitee still sees it in pending invites.
		s.log.Warn("group: store invite notification", "invite", inv.ID, "err", err)
	} else {
		s.router.NotifyUser(ctx, invitedUserID, realtime.EventNotification, note)
	}

	s.router.NotifyUser(ctx, invitedUserID, realtime.EventGroupInviteNotification, InviteNotice{
		InviteID:  inv.ID,
		GroupID:   g.ID,
		GroupName: g.Name,
		InvitedBy: inviter.Username,
	})
	return inv, nil
}

func (s *GroupService) PendingInvites(ctx context.Context, userID int64) ([]*domain.GroupInvite, error) {
	invites, err := s.invites.ListPendingForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	if invites == nil {
		invites = []*domain.GroupInvite{}
	}
	return invites, nil
}

// AcceptInvite makes the invitee a member of the group. The member is added
// before the invite is marked accepted; AddMember is idempotent, so a failed
// status update leaves the invite pending and safe to accept again.
func (s *GroupService) AcceptInvite(ctx context.Context, userID, inviteID int64) (*domain.Group, error) {
	inv, err := s.pendingInvite(ctx, userID, inviteID)
	if err != nil {
		return nil, err
	}
	if err := s.groups.AddMember(ctx, inv.GroupID, userID); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	if err := s.invites.UpdateStatus(ctx, inv.ID, domain.InviteAccepted); err != nil {
		return nil, fmt.Errorf("accept invite: %w", err)
	}
	return s.groups.GetByID(ctx, inv.GroupID)
}

func (s *GroupService) RejectInvite(ctx context.Context, userID, inviteID int64) error {
	inv, err := s.pendingInvite(ctx, userID, inviteID)
	if err != nil {
		return err
	}
	if err := s.invites.UpdateStatus(ctx, inv.ID, domain.InviteRejected); err != nil {
		return fmt.Errorf("reject invite: %w", err)
	}
	return nil
}

// RemoveMember lets the owner remove someone else from the group.
func (s *GroupService) RemoveMember(ctx context.Context, ownerID, groupID, memberID int64) error {
	g, err := s.ownedGroup(ctx, ownerID, groupID)
	if err != nil {
		return err
	}
	if memberID == g.OwnerID {
		return fmt.Errorf("%w: the owner cannot be removed", domain.ErrInvalidInput)
	}
	if err := s.groups.RemoveMember(ctx, groupID, memberID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	s.router.EvictFromGroup(ctx, memberID, groupID)
	return nil
}

func (s *GroupService) ownedGroup(ctx context.Context, userID, groupID int64) (*domain.Group, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if g.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the group owner can do this", domain.ErrForbidden)
	}
	return g, nil
}

func (s *GroupService) pendingInvite(ctx context.Context, userID, inviteID int64) (*domain.GroupInvite, error) {
	inv, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	if inv.InvitedUserID != userID {
		return nil, fmt.Errorf("%w: invite belongs to another user", domain.ErrForbidden)
	}
	if inv.Status != domain.InvitePending {
		return nil, fmt.Errorf("%w: invite already %s", domain.ErrConflict, inv.Status)
	}
	return inv, nil
}
