package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/Zimam07/Sonjog/internal/realtime"
)

// Inbound event names.
const (
	EventRegister   = "register"
	EventJoinGroup  = "joinGroup"
	EventLeaveGroup = "leaveGroup"
)

// MembershipChecker authorises joinGroup requests.
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

type registerPayload struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

type groupPayload struct {
	GroupID int64 `json:"groupId" validate:"required,gt=0"`
}

type typingPayload struct {
	ToUserID   int64 `json:"toUserId" validate:"required,gt=0"`
	FromUserID int64 `json:"fromUserId" validate:"required,gt=0"`
}

type inbound struct {
	client     *Client
	data       []byte
	disconnect bool
}

var errEmptyPayload = errors.New("empty payload")

// Hub owns the inbound side of every websocket connection. Events from all
// connections are handled one at a time by Run, so a register, join, leave,
// typing or disconnect is fully applied before the next one starts.
type Hub struct {
	conns    *Conns
	presence realtime.PresenceStore
	rooms    *realtime.Rooms
	typing   *realtime.TypingRelay
	groups   MembershipChecker
	validate *validator.Validate
	log      *slog.Logger

	events chan inbound
	done   chan struct{}
}

func NewHub(
	conns *Conns,
	presence realtime.PresenceStore,
	rooms *realtime.Rooms,
	typing *realtime.TypingRelay,
	groups MembershipChecker,
	log *slog.Logger,
) *Hub {
	return &Hub{
		conns:    conns,
		presence: presence,
		rooms:    rooms,
		typing:   typing,
		groups:   groups,
		validate: validator.New(),
		log:      log,
		events:   make(chan inbound, 256),
		done:     make(chan struct{}),
	}
}

// Run handles inbound events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.log.Info("ws: hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("ws: hub stopped")
			return
		case ev := <-h.events:
			h.handle(ctx, ev)
		}
	}
}

// submit hands an event to Run. It reports false once the hub has stopped.
func (h *Hub) submit(ev inbound) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handle(ctx context.Context, ev inbound) {
	c := ev.client
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("ws: panic handling event", "conn", c.id, "panic", r)
		}
	}()

	if ev.disconnect {
		h.disconnect(ctx, c)
		return
	}

	var f realtime.Frame
	if err := json.Unmarshal(ev.data, &f); err != nil {
		h.log.Debug("ws: malformed frame", "conn", c.id, "err", err)
		return
	}

	switch f.Event {
	case EventRegister:
		var p registerPayload
		if !h.decode(c, f, &p) {
			return
		}
		h.register(ctx, c, p.UserID)

	case EventJoinGroup:
		var p groupPayload
		if !h.decode(c, f, &p) {
			return
		}
		h.joinGroup(ctx, c, p.GroupID)

	case EventLeaveGroup:
		var p groupPayload
		if !h.decode(c, f, &p) {
			return
		}
		if err := h.rooms.Leave(ctx, c.id, realtime.GroupRoom(p.GroupID)); err != nil {
			h.log.Warn("ws: leave room", "conn", c.id, "group", p.GroupID, "err", err)
		}

	case realtime.EventTyping, realtime.EventStopTyping:
		var p typingPayload
		if !h.decode(c, f, &p) {
			return
		}
		if !c.registered || p.FromUserID != c.userID {
			h.log.Debug("ws: typing from unregistered or foreign user", "conn", c.id, "from", p.FromUserID)
			return
		}
		h.typing.Relay(ctx, p.FromUserID, p.ToUserID, realtime.TypingKind(f.Event))

	default:
		h.log.Debug("ws: unknown event", "conn", c.id, "event", f.Event)
	}
}

func (h *Hub) decode(c *Client, f realtime.Frame, dst any) bool {
	err := errEmptyPayload
	if len(f.Data) > 0 {
		err = json.Unmarshal(f.Data, dst)
		if err == nil {
			err = h.validate.Struct(dst)
		}
	}
	if err != nil {
		h.log.Debug("ws: invalid payload", "conn", c.id, "event", f.Event, "err", err)
		return false
	}
	return true
}

func (h *Hub) register(ctx context.Context, c *Client, userID int64) {
	if userID != c.userID {
		h.log.Warn("ws: register for another user", "conn", c.id, "user", c.userID, "claimed", userID)
		return
	}
	if err := h.presence.Register(ctx, userID, c.id); err != nil {
		h.log.Error("ws: register presence", "conn", c.id, "user", userID, "err", err)
		return
	}
	c.registered = true
	h.log.Debug("ws: registered", "conn", c.id, "user", userID)
}

func (h *Hub) joinGroup(ctx context.Context, c *Client, groupID int64) {
	ok, err := h.groups.IsMember(ctx, groupID, c.userID)
	if err != nil {
		h.log.Warn("ws: membership check", "conn", c.id, "group", groupID, "err", err)
		return
	}
	if !ok {
		h.log.Debug("ws: join refused, not a member", "conn", c.id, "user", c.userID, "group", groupID)
		return
	}
	if err := h.rooms.Join(ctx, c.id, realtime.GroupRoom(groupID)); err != nil {
		h.log.Warn("ws: join room", "conn", c.id, "group", groupID, "err", err)
	}
}

func (h *Hub) disconnect(ctx context.Context, c *Client) {
	h.conns.Remove(c.id)
	if err := h.presence.RemoveByConnection(ctx, c.id); err != nil {
		h.log.Warn("ws: remove presence", "conn", c.id, "err", err)
	}
	if err := h.rooms.DropConnection(ctx, c.id); err != nil {
		h.log.Warn("ws: sweep rooms", "conn", c.id, "err", err)
	}
	h.log.Debug("ws: disconnected", "conn", c.id, "user", c.userID)
}
