package realtime

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"github.com/Zimam07/Sonjog/internal/domain"
)

// Router pushes already-persisted messages and notifications to live
// connections. It has no failure mode visible to callers: misses and store
// errors are logged and swallowed, and the caller never waits on delivery.
type Router struct {
	presence PresenceStore
	rooms    *Rooms
	pusher   Pusher
	log      *slog.Logger
}

func NewRouter(presence PresenceStore, rooms *Rooms, pusher Pusher, log *slog.Logger) *Router {
	return &Router{presence: presence, rooms: rooms, pusher: pusher, log: log}
}

// DeliverDirect pushes msg to its recipient's connection, if any. The author
// already holds the message from the request that stored it.
func (r *Router) DeliverDirect(ctx context.Context, msg *domain.MessageView) {
	if msg == nil || msg.ReceiverID == nil || *msg.ReceiverID == msg.SenderID {
		return
	}
	ctx = context.WithoutCancel(ctx)

	frame, err := Encode(EventNewMessage, msg)
	if err != nil {
		r.log.Error("router: encode direct message", "message", msg.ID, "err", err)
		return
	}
	r.pushToUser(ctx, *msg.ReceiverID, frame)
}

// DeliverGroup broadcasts msg to every connection joined to the group room.
// Membership was authorised when the connection joined the room.
func (r *Router) DeliverGroup(ctx context.Context, msg *domain.MessageView) {
	if msg == nil || msg.GroupID == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	frame, err := Encode(EventNewMessage, msg)
	if err != nil {
		r.log.Error("router: encode group message", "message", msg.ID, "err", err)
		return
	}
	r.rooms.Broadcast(ctx, GroupRoom(*msg.GroupID), frame)
}

// NotifyUser pushes an arbitrary event to a user's connection, if any.
func (r *Router) NotifyUser(ctx context.Context, userID int64, event string, data any) {
	ctx = context.WithoutCancel(ctx)

	frame, err := Encode(event, data)
	if err != nil {
		r.log.Error("router: encode notification", "event", event, "err", err)
		return
	}
	r.pushToUser(ctx, userID, frame)
}

// EvictFromGroup removes every connection of the user from the group room so
// a former member stops receiving its broadcasts. A connection may join rooms
// before it registers, so the registered connection alone is not enough; when
// the pusher can list the user's local connections, all of them leave.
func (r *Router) EvictFromGroup(ctx context.Context, userID, groupID int64) {
	ctx = context.WithoutCancel(ctx)

	var connIDs []string
	if uc, ok := r.pusher.(UserConnections); ok {
		connIDs = uc.ForUser(userID)
	}
	connID, ok, err := r.presence.Lookup(ctx, userID)
	if err != nil {
		r.log.Warn("router: presence lookup failed", "user", userID, "err", err)
	} else if ok {
		connIDs = append(connIDs, connID)
	}

	room := GroupRoom(groupID)
	for _, id := range lo.Uniq(connIDs) {
		if err := r.rooms.Leave(ctx, id, room); err != nil {
			r.log.Warn("router: evict from room", "user", userID, "conn", id, "group", groupID, "err", err)
		}
	}
}

func (r *Router) pushToUser(ctx context.Context, userID int64, frame []byte) {
	connID, ok, err := r.presence.Lookup(ctx, userID)
	if err != nil {
		r.log.Warn("router: presence lookup failed", "user", userID, "err", err)
		return
	}
	if !ok {
		r.log.Debug("router: user offline", "user", userID)
		return
	}
	r.pusher.Push(connID, frame)
}
