// Package realtime holds the live side of messaging: who is connected where,
// which connections listen to which group rooms, and how persisted messages,
// typing signals and notifications reach those connections.
//
// Delivery is best-effort. Nothing here stores messages; callers push only
// after the conversation store has committed.
package realtime

import (
	"encoding/json"
	"fmt"
)

// Outbound event names.
const (
	EventNewMessage              = "newMessage"
	EventTyping                  = "typing"
	EventStopTyping              = "stopTyping"
	EventGroupInviteNotification = "groupInviteNotification"
	EventNotification            = "notification"
)

// Frame is the JSON envelope exchanged over a connection in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode builds an outbound frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// Pusher hands an encoded frame to one live connection. Pushing to a
// connection that is unknown or already closed is a no-op.
type Pusher interface {
	Push(connID string, frame []byte)
}

// UserConnections is implemented by pushers that can list the connections a
// user holds in this process, registered or not.
type UserConnections interface {
	ForUser(userID int64) []string
}

// GroupRoom is the room id carrying a group's conversation.
func GroupRoom(groupID int64) string {
	return fmt.Sprintf("group-%d", groupID)
}
