package realtime

import (
	"context"
	"log/slog"
)

type TypingKind string

const (
	Typing     TypingKind = EventTyping
	StopTyping TypingKind = EventStopTyping
)

type typingPayload struct {
	FromUserID int64 `json:"fromUserId"`
}

// TypingRelay forwards typing indicators to the recipient's live connection.
// Signals for offline users are dropped; nothing is queued.
type TypingRelay struct {
	presence PresenceStore
	pusher   Pusher
	log      *slog.Logger
}

func NewTypingRelay(presence PresenceStore, pusher Pusher, log *slog.Logger) *TypingRelay {
	return &TypingRelay{presence: presence, pusher: pusher, log: log}
}

func (t *TypingRelay) Relay(ctx context.Context, fromUserID, toUserID int64, kind TypingKind) {
	connID, ok, err := t.presence.Lookup(ctx, toUserID)
	if err != nil {
		t.log.Warn("typing: presence lookup failed", "to", toUserID, "err", err)
		return
	}
	if !ok {
		return
	}
	frame, err := Encode(string(kind), typingPayload{FromUserID: fromUserID})
	if err != nil {
		t.log.Error("typing: encode", "err", err)
		return
	}
	t.pusher.Push(connID, frame)
}
