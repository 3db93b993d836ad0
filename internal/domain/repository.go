package domain

import (
	"context"
)

// UserRepository defines persistence operations for users.
// Lookups return ErrNotFound when no row matches.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*User, error)
}

// ConversationGateway is the persistence boundary of the messaging core.
// It must be safe for concurrent use; FindOrCreate is atomic per key.
type ConversationGateway interface {
	FindOrCreate(ctx context.Context, key ConversationKey) (*Conversation, error)
	// Find returns ErrNotFound when the conversation was never created.
	Find(ctx context.Context, key ConversationKey) (*Conversation, error)
	AppendMessage(ctx context.Context, conv *Conversation, m *Message) error
	ListMessages(ctx context.Context, conversationID int64, limit int) ([]*Message, error)
}

// GroupRepository defines persistence operations for groups and their members.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) error
	GetByID(ctx context.Context, id int64) (*Group, error)
	ListForUser(ctx context.Context, userID int64) ([]*Group, error)
	Update(ctx context.Context, g *Group) error
	AddMember(ctx context.Context, groupID, userID int64) error
	RemoveMember(ctx context.Context, groupID, userID int64) error
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// InviteRepository stores group invitations. Create returns ErrConflict when
// the user already has an invite for the group.
type InviteRepository interface {
	Create(ctx context.Context, inv *GroupInvite) error
	GetByID(ctx context.Context, id int64) (*GroupInvite, error)
	ListPendingForUser(ctx context.Context, userID int64) ([]*GroupInvite, error)
	UpdateStatus(ctx context.Context, id int64, status InviteStatus) error
}

// NotificationRepository stores per-user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID int64) ([]*Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	DeleteForUser(ctx context.Context, userID int64) error
}
