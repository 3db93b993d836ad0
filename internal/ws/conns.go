package ws

import (
	"log/slog"
	"sync"

	"github.com/Zimam07/Sonjog/internal/realtime"
)

// Conns is the table of live websocket connections held by this process,
// keyed by connection id. It is the realtime.Pusher used by rooms, router and
// typing relay.
type Conns struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *slog.Logger
}

var (
	_ realtime.Pusher          = (*Conns)(nil)
	_ realtime.UserConnections = (*Conns)(nil)
)

func NewConns(log *slog.Logger) *Conns {
	return &Conns{
		clients: make(map[string]*Client),
		log:     log,
	}
}

func (c *Conns) Add(cl *Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[cl.id] = cl
}

// Remove drops the connection and closes its outbound queue. Safe to call
// more than once.
func (c *Conns) Remove(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.clients[connID]
	if !ok {
		return
	}
	delete(c.clients, connID)
	close(cl.send)
}

func (c *Conns) Get(connID string) (*Client, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cl, ok := c.clients[connID]
	return cl, ok
}

// ForUser lists the ids of every live connection authenticated as userID.
func (c *Conns) ForUser(userID int64) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []string
	for id, cl := range c.clients {
		if cl.userID == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Conns) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}

// Push queues frame for connID without blocking. Unknown connections and
// full queues drop the frame.
func (c *Conns) Push(connID string, frame []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cl, ok := c.clients[connID]
	if !ok {
		c.log.Debug("ws: push to unknown connection", "conn", connID)
		return
	}
	select {
	case cl.send <- frame:
	default:
		c.log.Warn("ws: send buffer full, dropping frame", "conn", connID, "user", cl.userID)
	}
}

// CloseAll removes every connection, which makes each writer send a close
// frame and hang up. Used on shutdown.
func (c *Conns) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cl := range c.clients {
		delete(c.clients, id)
		close(cl.send)
	}
}
