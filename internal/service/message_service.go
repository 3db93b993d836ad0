package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/Zimam07/Sonjog/internal/domain"
	"github.com/Zimam07/Sonjog/internal/security"
)

// MaxMessageLength is the maximum message body length in characters.
const MaxMessageLength = 5000

// Deliverer pushes persisted state to live connections. Implemented by
// realtime.Router; calls never fail from the caller's point of view.
type Deliverer interface {
	DeliverDirect(ctx context.Context, msg *domain.MessageView)
	DeliverGroup(ctx context.Context, msg *domain.MessageView)
	NotifyUser(ctx context.Context, userID int64, event string, data any)
	EvictFromGroup(ctx context.Context, userID, groupID int64)
}

// MessageService persists direct and group messages and hands them to the
// delivery router once the write succeeded.
type MessageService struct {
	conversations domain.ConversationGateway
	users         domain.UserRepository
	groups        domain.GroupRepository
	encryptor     *security.Encryptor
	router        Deliverer
	log           *slog.Logger

	HistoryLimit int
}

func NewMessageService(
	conversations domain.ConversationGateway,
	users domain.UserRepository,
	groups domain.GroupRepository,
	encryptor *security.Encryptor,
	router Deliverer,
	log *slog.Logger,
	historyLimit int,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		users:         users,
		groups:        groups,
		encryptor:     encryptor,
		router:        router,
		log:           log,
		HistoryLimit:  historyLimit,
	}
}

// SendDirect stores a message from senderID to receiverID and pushes it to the
// receiver's live connection. A receiver without a connection still gets the
// message through History.
func (s *MessageService) SendDirect(ctx context.Context, senderID, receiverID int64, body string) (*domain.MessageView, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot message yourself", domain.ErrInvalidInput)
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("get sender: %w", err)
	}
	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		return nil, fmt.Errorf("get receiver: %w", err)
	}

	conv, err := s.conversations.FindOrCreate(ctx, domain.DirectKey(senderID, receiverID))
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	msg := &domain.Message{SenderID: senderID, ReceiverID: &receiverID}
	if err := s.store(ctx, conv, msg, body); err != nil {
		return nil, err
	}

	view := newView(msg, body, sender)
	s.router.DeliverDirect(ctx, view)
	return view, nil
}

// History returns the direct conversation between userID and peerID, oldest
// first. A pair that never exchanged messages has an empty history.
func (s *MessageService) History(ctx context.Context, userID, peerID int64) ([]*domain.MessageView, error) {
	if userID == peerID {
		return nil, fmt.Errorf("%w: cannot message yourself", domain.ErrInvalidInput)
	}
	conv, err := s.conversations.Find(ctx, domain.DirectKey(userID, peerID))
	if errors.Is(err, domain.ErrNotFound) {
		return []*domain.MessageView{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return s.list(ctx, conv.ID)
}

// SendGroup stores a message in a group the sender belongs to and broadcasts it
// to every connection joined to the group room, the sender's included.
func (s *MessageService) SendGroup(ctx context.Context, senderID, groupID int64, body string) (*domain.MessageView, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if !lo.Contains(group.Members, senderID) {
		return nil, fmt.Errorf("%w: not a member of this group", domain.ErrForbidden)
	}
	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("get sender: %w", err)
	}

	conv, err := s.conversations.FindOrCreate(ctx, domain.GroupKey(groupID))
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	msg := &domain.Message{SenderID: senderID, GroupID: &groupID}
	if err := s.store(ctx, conv, msg, body); err != nil {
		return nil, err
	}

	view := newView(msg, body, sender)
	s.router.DeliverGroup(ctx, view)
	return view, nil
}

func (s *MessageService) GroupHistory(ctx context.Context, userID, groupID int64) ([]*domain.MessageView, error) {
	ok, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: not a member of this group", domain.ErrForbidden)
	}
	conv, err := s.conversations.Find(ctx, domain.GroupKey(groupID))
	if errors.Is(err, domain.ErrNotFound) {
		return []*domain.MessageView{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return s.list(ctx, conv.ID)
}

func (s *MessageService) store(ctx context.Context, conv *domain.Conversation, msg *domain.Message, body string) error {
	enc, err := s.encryptor.Encrypt(body)
	if err != nil {
		return fmt.Errorf("encrypt message: %w", err)
	}
	msg.Body = enc
	if err := s.conversations.AppendMessage(ctx, conv, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *MessageService) list(ctx context.Context, conversationID int64) ([]*domain.MessageView, error) {
	msgs, err := s.conversations.ListMessages(ctx, conversationID, s.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	senderIDs := lo.Uniq(lo.Map(msgs, func(m *domain.Message, _ int) int64 { return m.SenderID }))
	senders, err := s.users.ListByIDs(ctx, senderIDs)
	if err != nil {
		return nil, fmt.Errorf("load senders: %w", err)
	}
	byID := lo.KeyBy(senders, func(u *domain.User) int64 { return u.ID })

	views := make([]*domain.MessageView, 0, len(msgs))
	for _, m := range msgs {
		plain, err := s.encryptor.Decrypt(m.Body)
		if err != nil {
			s.log.Warn("message: decrypt failed", "message", m.ID, "err", err)
			continue
		}
		views = append(views, newView(m, plain, byID[m.SenderID]))
	}
	return views, nil
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", domain.ErrInvalidInput, MaxMessageLength)
	}
	return nil
}

func newView(m *domain.Message, plain string, sender *domain.User) *domain.MessageView {
	v := &domain.MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		GroupID:        m.GroupID,
		Message:        plain,
		CreatedAt:      m.CreatedAt,
	}
	if sender != nil {
		summary := sender.Summary()
		v.Sender = &summary
	}
	return v
}
