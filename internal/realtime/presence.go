package realtime

import (
	"context"
	"slices"
	"sync"
)

// PresenceStore maps a user to the single connection it registered last.
//
// RemoveByConnection deletes only entries still pointing at connID, so a
// stale connection closing never evicts a newer registration of the same user.
type PresenceStore interface {
	Register(ctx context.Context, userID int64, connID string) error
	Lookup(ctx context.Context, userID int64) (connID string, ok bool, err error)
	RemoveByConnection(ctx context.Context, connID string) error
	Online(ctx context.Context) ([]int64, error)
}

// MemoryPresence is a process-local PresenceStore with a reverse index from
// connection to users.
type MemoryPresence struct {
	mu     sync.RWMutex
	byUser map[int64]string
	byConn map[string]map[int64]struct{}
}

var _ PresenceStore = (*MemoryPresence)(nil)

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{
		byUser: make(map[int64]string),
		byConn: make(map[string]map[int64]struct{}),
	}
}

func (p *MemoryPresence) Register(_ context.Context, userID int64, connID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.byUser[userID]; ok && old != connID {
		p.unindex(old, userID)
	}
	p.byUser[userID] = connID
	if p.byConn[connID] == nil {
		p.byConn[connID] = make(map[int64]struct{})
	}
	p.byConn[connID][userID] = struct{}{}
	return nil
}

func (p *MemoryPresence) Lookup(_ context.Context, userID int64) (string, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	connID, ok := p.byUser[userID]
	return connID, ok, nil
}

func (p *MemoryPresence) RemoveByConnection(_ context.Context, connID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for userID := range p.byConn[connID] {
		if p.byUser[userID] == connID {
			delete(p.byUser, userID)
		}
	}
	delete(p.byConn, connID)
	return nil
}

func (p *MemoryPresence) Online(_ context.Context) ([]int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]int64, 0, len(p.byUser))
	for userID := range p.byUser {
		ids = append(ids, userID)
	}
	slices.Sort(ids)
	return ids, nil
}

func (p *MemoryPresence) unindex(connID string, userID int64) {
	users := p.byConn[connID]
	delete(users, userID)
	if len(users) == 0 {
		delete(p.byConn, connID)
	}
}
