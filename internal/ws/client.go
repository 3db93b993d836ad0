package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one websocket session. userID is the authenticated account;
// registered flips once the client sent a matching register event, and is
// only touched by the hub goroutine.
type Client struct {
	id         string
	userID     int64
	registered bool
	conn       *websocket.Conn
	send       chan []byte
}

func newClient(conn *websocket.Conn, userID int64, buffer int) *Client {
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, buffer),
	}
}

func (c *Client) ID() string { return c.id }

// readPump forwards inbound frames to the hub until the connection fails,
// then reports the disconnect.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.submit(inbound{client: c, disconnect: true})
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("ws: read failed", "conn", c.id, "err", err)
			}
			return
		}
		if !h.submit(inbound{client: c, data: data}) {
			return
		}
	}
}

// writePump is the only writer on the connection. It exits when the send
// channel is closed by Conns.Remove or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
