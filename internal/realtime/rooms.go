package realtime

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// RoomStore tracks which connections are joined to which rooms.
type RoomStore interface {
	Join(ctx context.Context, connID, roomID string) error
	Leave(ctx context.Context, connID, roomID string) error
	Members(ctx context.Context, roomID string) ([]string, error)
	// RemoveConnection drops every membership of connID.
	RemoveConnection(ctx context.Context, connID string) error
}

// MemoryRooms keeps both directions of the relation so that joins, leaves
// and the disconnect sweep are all O(1) per membership.
type MemoryRooms struct {
	mu     sync.RWMutex
	byRoom map[string]map[string]struct{}
	byConn map[string]map[string]struct{}
}

var _ RoomStore = (*MemoryRooms)(nil)

func NewMemoryRooms() *MemoryRooms {
	return &MemoryRooms{
		byRoom: make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryRooms) Join(_ context.Context, connID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byRoom[roomID] == nil {
		m.byRoom[roomID] = make(map[string]struct{})
	}
	m.byRoom[roomID][connID] = struct{}{}
	if m.byConn[connID] == nil {
		m.byConn[connID] = make(map[string]struct{})
	}
	m.byConn[connID][roomID] = struct{}{}
	return nil
}

func (m *MemoryRooms) Leave(_ context.Context, connID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.remove(connID, roomID)
	return nil
}

func (m *MemoryRooms) Members(_ context.Context, roomID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := make([]string, 0, len(m.byRoom[roomID]))
	for connID := range m.byRoom[roomID] {
		members = append(members, connID)
	}
	slices.Sort(members)
	return members, nil
}

func (m *MemoryRooms) RemoveConnection(_ context.Context, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for roomID := range m.byConn[connID] {
		m.remove(connID, roomID)
	}
	return nil
}

func (m *MemoryRooms) remove(connID, roomID string) {
	if conns, ok := m.byRoom[roomID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(m.byRoom, roomID)
		}
	}
	if rooms, ok := m.byConn[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(m.byConn, connID)
		}
	}
}

// Rooms is the membership manager used by the hub and the router.
type Rooms struct {
	store  RoomStore
	pusher Pusher
	log    *slog.Logger
}

func NewRooms(store RoomStore, pusher Pusher, log *slog.Logger) *Rooms {
	return &Rooms{store: store, pusher: pusher, log: log}
}

func (r *Rooms) Join(ctx context.Context, connID, roomID string) error {
	return r.store.Join(ctx, connID, roomID)
}

func (r *Rooms) Leave(ctx context.Context, connID, roomID string) error {
	return r.store.Leave(ctx, connID, roomID)
}

// DropConnection forgets all memberships of a closed connection.
func (r *Rooms) DropConnection(ctx context.Context, connID string) error {
	return r.store.RemoveConnection(ctx, connID)
}

// Broadcast pushes frame to every connection currently joined to roomID,
// the sender's own connection included.
func (r *Rooms) Broadcast(ctx context.Context, roomID string, frame []byte) {
	members, err := r.store.Members(ctx, roomID)
	if err != nil {
		r.log.Warn("room members lookup failed", "room", roomID, "err", err)
		return
	}
	for _, connID := range members {
		r.pusher.Push(connID, frame)
	}
	r.log.Debug("room broadcast", "room", roomID, "connections", len(members))
}
