package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zimam07/Sonjog/internal/domain"
)

type push struct {
	connID string
	frame  Frame
}

// recordingPusher stands in for the websocket connection table.
type recordingPusher struct {
	mu     sync.Mutex
	pushes []push
}

func (p *recordingPusher) Push(connID string, frame []byte) {
	var f Frame
	if err := json.Unmarshal(frame, &f); err != nil {
		panic(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, push{connID: connID, frame: f})
}

func (p *recordingPusher) targets() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.pushes))
	for _, ps := range p.pushes {
		out = append(out, ps.connID)
	}
	return out
}

func (p *recordingPusher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = nil
}

type fixture struct {
	presence *MemoryPresence
	rooms    *Rooms
	pusher   *recordingPusher
	router   *Router
	typing   *TypingRelay
}

func newFixture() *fixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	presence := NewMemoryPresence()
	pusher := &recordingPusher{}
	rooms := NewRooms(NewMemoryRooms(), pusher, log)
	return &fixture{
		presence: presence,
		rooms:    rooms,
		pusher:   pusher,
		router:   NewRouter(presence, rooms, pusher, log),
		typing:   NewTypingRelay(presence, pusher, log),
	}
}

func ptr(v int64) *int64 { return &v }

func TestDeliverDirectReachesOnlyRecipient(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.presence.Register(ctx, 1, "cA"))
	require.NoError(t, f.presence.Register(ctx, 2, "cB"))

	f.router.DeliverDirect(ctx, &domain.MessageView{ID: 10, SenderID: 1, ReceiverID: ptr(2), Message: "hello"})

	require.Equal(t, []string{"cB"}, f.pusher.targets())
	got := f.pusher.pushes[0].frame
	assert.Equal(t, EventNewMessage, got.Event)

	var view domain.MessageView
	require.NoError(t, json.Unmarshal(got.Data, &view))
	assert.Equal(t, "hello", view.Message)
	assert.Equal(t, int64(1), view.SenderID)
}

func TestDeliverDirectOfflineRecipientIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.presence.Register(ctx, 1, "cA"))

	f.router.DeliverDirect(ctx, &domain.MessageView{ID: 10, SenderID: 1, ReceiverID: ptr(2)})

	assert.Empty(t, f.pusher.targets())
}

func TestDeliverDirectConnectedButUnregisteredIsOffline(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	// cB joined a room, so the connection exists, but never sent register.
	require.NoError(t, f.rooms.Join(ctx, "cB", GroupRoom(1)))

	f.router.DeliverDirect(ctx, &domain.MessageView{ID: 10, SenderID: 1, ReceiverID: ptr(2)})

	assert.Empty(t, f.pusher.targets())
}

func TestDeliverGroupReachesAllAndOnlyRoomMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	room := GroupRoom(7)
	for _, c := range []string{"c1", "c2", "c3"} {
		require.NoError(t, f.rooms.Join(ctx, c, room))
	}
	require.NoError(t, f.rooms.Join(ctx, "c4", GroupRoom(8)))

	f.router.DeliverGroup(ctx, &domain.MessageView{ID: 1, SenderID: 1, GroupID: ptr(7), Message: "hi all"})

	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, f.pusher.targets())

	var view domain.MessageView
	require.NoError(t, json.Unmarshal(f.pusher.pushes[0].frame.Data, &view))
	require.NotNil(t, view.GroupID)
	assert.Equal(t, int64(7), *view.GroupID)
}

func TestLeaveAndDisconnectStopGroupDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	room := GroupRoom(7)
	for _, c := range []string{"c1", "c2", "c3"} {
		require.NoError(t, f.rooms.Join(ctx, c, room))
	}

	require.NoError(t, f.rooms.Leave(ctx, "c1", room))
	require.NoError(t, f.rooms.DropConnection(ctx, "c2"))

	f.router.DeliverGroup(ctx, &domain.MessageView{ID: 1, SenderID: 1, GroupID: ptr(7)})

	assert.Equal(t, []string{"c3"}, f.pusher.targets())
}

func TestTypingRelayIsBestEffortAndStateless(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.presence.Register(ctx, 1, "cA"))

	f.typing.Relay(ctx, 1, 2, Typing)
	assert.Empty(t, f.pusher.targets())

	// Bob comes online: nothing from before is replayed.
	require.NoError(t, f.presence.Register(ctx, 2, "cB"))
	assert.Empty(t, f.pusher.targets())

	f.typing.Relay(ctx, 1, 2, StopTyping)
	require.Equal(t, []string{"cB"}, f.pusher.targets())
	got := f.pusher.pushes[0].frame
	assert.Equal(t, EventStopTyping, got.Event)
	assert.JSONEq(t, `{"fromUserId":1}`, string(got.Data))
}

func TestNotifyUserAndEvictFromGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.presence.Register(ctx, 2, "cB"))
	require.NoError(t, f.rooms.Join(ctx, "cB", GroupRoom(3)))

	f.router.NotifyUser(ctx, 2, EventGroupInviteNotification, map[string]any{"inviteId": 5})
	f.router.NotifyUser(ctx, 9, EventGroupInviteNotification, map[string]any{"inviteId": 6})
	require.Equal(t, []string{"cB"}, f.pusher.targets())
	assert.Equal(t, EventGroupInviteNotification, f.pusher.pushes[0].frame.Event)

	f.pusher.reset()
	f.router.EvictFromGroup(ctx, 2, 3)
	f.router.DeliverGroup(ctx, &domain.MessageView{ID: 1, SenderID: 1, GroupID: ptr(3)})
	assert.Empty(t, f.pusher.targets())
}

// tabsPusher also knows which user owns each connection.
type tabsPusher struct {
	recordingPusher
	owners map[string]int64
}

func (p *tabsPusher) ForUser(userID int64) []string {
	var ids []string
	for id, uid := range p.owners {
		if uid == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

func TestEvictFromGroupCoversEveryConnection(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	presence := NewMemoryPresence()
	pusher := &tabsPusher{owners: map[string]int64{"tab1": 2, "tab2": 2, "other": 4}}
	rooms := NewRooms(NewMemoryRooms(), pusher, log)
	router := NewRouter(presence, rooms, pusher, log)

	for _, id := range []string{"tab1", "tab2", "other"} {
		require.NoError(t, rooms.Join(ctx, id, GroupRoom(3)))
	}
	// Only the newest tab is registered.
	require.NoError(t, presence.Register(ctx, 2, "tab2"))

	router.EvictFromGroup(ctx, 2, 3)
	router.DeliverGroup(ctx, &domain.MessageView{ID: 1, SenderID: 4, GroupID: ptr(3)})
	assert.Equal(t, []string{"other"}, pusher.targets())
}

func TestDeliverIgnoresIncompleteMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.presence.Register(ctx, 1, "cA"))

	f.router.DeliverDirect(ctx, nil)
	f.router.DeliverDirect(ctx, &domain.MessageView{SenderID: 1})
	f.router.DeliverDirect(ctx, &domain.MessageView{SenderID: 1, ReceiverID: ptr(1)})
	f.router.DeliverGroup(ctx, &domain.MessageView{SenderID: 1})

	assert.Empty(t, f.pusher.targets())
}

func TestEncode(t *testing.T) {
	frame, err := Encode(EventTyping, typingPayload{FromUserID: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"typing","data":{"fromUserId":4}}`, string(frame))
	assert.Equal(t, "group-12", GroupRoom(12))
}
