package domain

import (
	"fmt"
	"time"
)

// User represents an application user.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Email          string    `db:"email" json:"email"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	ProfilePicture string    `db:"profile_picture" json:"profilePicture"`
	Bio            string    `db:"bio" json:"bio"`
	IsActive       bool      `db:"is_active" json:"isActive"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// UserSummary is the display subset embedded in pushed events.
type UserSummary struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}

type ConversationKind string

const (
	ConversationDirect ConversationKind = "direct"
	ConversationGroup  ConversationKind = "group"
)

// Conversation is either a direct thread between two users or the thread of a group.
type Conversation struct {
	ID           int64            `db:"id" json:"id"`
	Kind         ConversationKind `db:"kind" json:"kind"`
	GroupID      *int64           `db:"group_id" json:"groupId,omitempty"`
	DirectKey    *string          `db:"direct_key" json:"-"`
	Participants []int64          `json:"participants"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updatedAt"`
}

// ConversationKey identifies a conversation for find-or-create.
// Direct keys carry exactly two participants. Group keys carry only the group
// id; group membership lives with the group, not the conversation.
type ConversationKey struct {
	Kind         ConversationKind
	Participants []int64
	GroupID      int64
}

func DirectKey(a, b int64) ConversationKey {
	return ConversationKey{Kind: ConversationDirect, Participants: []int64{a, b}}
}

func GroupKey(groupID int64) ConversationKey {
	return ConversationKey{Kind: ConversationGroup, GroupID: groupID}
}

// DirectPairKey is the order-independent unique key of a direct conversation.
func DirectPairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func (k ConversationKey) Validate() error {
	switch k.Kind {
	case ConversationDirect:
		if len(k.Participants) != 2 || k.Participants[0] <= 0 || k.Participants[1] <= 0 {
			return fmt.Errorf("%w: direct conversation needs two participants", ErrInvalidInput)
		}
		if k.Participants[0] == k.Participants[1] {
			return fmt.Errorf("%w: cannot open a conversation with yourself", ErrInvalidInput)
		}
	case ConversationGroup:
		if k.GroupID <= 0 {
			return fmt.Errorf("%w: group conversation needs a group id", ErrInvalidInput)
		}
		if len(k.Participants) > 0 {
			return fmt.Errorf("%w: group conversation takes no participants", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown conversation kind %q", ErrInvalidInput, k.Kind)
	}
	return nil
}

// Message represents a single chat message.
type Message struct {
	ID             int64     `db:"id"`
	ConversationID int64     `db:"conversation_id"`
	SenderID       int64     `db:"sender_id"`
	ReceiverID     *int64    `db:"receiver_id"`
	GroupID        *int64    `db:"group_id"`
	Body           string    `db:"body"` // encrypted at rest
	CreatedAt      time.Time `db:"created_at"`
}

// MessageView is the decrypted, client-facing shape of a message. It is the
// payload of both the HTTP responses and the newMessage push.
type MessageView struct {
	ID             int64        `json:"id"`
	ConversationID int64        `json:"conversationId"`
	SenderID       int64        `json:"senderId"`
	ReceiverID     *int64       `json:"receiverId,omitempty"`
	GroupID        *int64       `json:"groupId,omitempty"`
	Message        string       `json:"message"`
	Sender         *UserSummary `json:"sender,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// Group is a named set of users sharing one group conversation.
type Group struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	OwnerID     int64     `db:"owner_id" json:"ownerId"`
	IsPrivate   bool      `db:"is_private" json:"isPrivate"`
	Description string    `db:"description" json:"description"`
	Members     []int64   `json:"members"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
)

type GroupInvite struct {
	ID            int64        `db:"id" json:"id"`
	GroupID       int64        `db:"group_id" json:"groupId"`
	InvitedBy     int64        `db:"invited_by" json:"invitedBy"`
	InvitedUserID int64        `db:"invited_user_id" json:"invitedUser"`
	Status        InviteStatus `db:"status" json:"status"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updatedAt"`
}

// Notification kinds produced by this service.
const (
	NotificationGroupInvite = "group_invite"
)

type Notification struct {
	ID         int64     `db:"id" json:"id"`
	Type       string    `db:"type" json:"type"`
	UserID     int64     `db:"user_id" json:"user"`
	FromUserID *int64    `db:"from_user_id" json:"fromUser,omitempty"`
	Message    string    `db:"message" json:"message"`
	Read       bool      `db:"read" json:"read"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
