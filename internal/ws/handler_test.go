package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zimam07/Sonjog/internal/domain"
	"github.com/Zimam07/Sonjog/internal/realtime"
	"github.com/Zimam07/Sonjog/internal/ws"
)

const testOrigin = "http://chat.local"

type tokenAuth map[string]int64

func (a tokenAuth) Authenticate(_ context.Context, token string) (*domain.User, error) {
	id, ok := a[token]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return &domain.User{ID: id, Username: "user", IsActive: true}, nil
}

type groupMembers map[int64][]int64

func (g groupMembers) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	for _, id := range g[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type server struct {
	url      string
	presence *realtime.MemoryPresence
	router   *realtime.Router
}

func newServer(t *testing.T) *server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	conns := ws.NewConns(log)
	presence := realtime.NewMemoryPresence()
	rooms := realtime.NewRooms(realtime.NewMemoryRooms(), conns, log)
	router := realtime.NewRouter(presence, rooms, conns, log)
	typing := realtime.NewTypingRelay(presence, conns, log)
	hub := ws.NewHub(conns, presence, rooms, typing, groupMembers{7: {1, 2}}, log)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	auth := tokenAuth{"tok-alice": 1, "tok-bob": 2}
	srv := httptest.NewServer(ws.MakeHandler(hub, auth, []string{testOrigin}, 16, log))
	t.Cleanup(func() {
		srv.Close()
		conns.CloseAll()
		cancel()
	})

	return &server{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		presence: presence,
		router:   router,
	}
}

func (s *server) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	h := http.Header{}
	h.Set("Origin", testOrigin)
	h.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.Dial(s.url, h)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *server) online(userID int64) bool {
	_, ok, err := s.presence.Lookup(context.Background(), userID)
	return err == nil && ok
}

func write(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := realtime.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func read(t *testing.T, conn *websocket.Conn) realtime.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f realtime.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func register(t *testing.T, s *server, conn *websocket.Conn, userID int64) {
	t.Helper()
	write(t, conn, ws.EventRegister, map[string]any{"userId": userID})
	require.Eventually(t, func() bool { return s.online(userID) }, 2*time.Second, 10*time.Millisecond)
}

func TestDirectMessageAndTypingReachRecipient(t *testing.T) {
	s := newServer(t)
	alice := s.dial(t, "tok-alice")
	bob := s.dial(t, "tok-bob")
	register(t, s, alice, 1)
	register(t, s, bob, 2)

	write(t, alice, realtime.EventTyping, map[string]any{"toUserId": 2, "fromUserId": 1})
	got := read(t, bob)
	assert.Equal(t, realtime.EventTyping, got.Event)
	assert.JSONEq(t, `{"fromUserId":1}`, string(got.Data))

	receiver := int64(2)
	s.router.DeliverDirect(context.Background(), &domain.MessageView{
		ID:         10,
		SenderID:   1,
		ReceiverID: &receiver,
		Message:    "hello bob",
	})
	got = read(t, bob)
	assert.Equal(t, realtime.EventNewMessage, got.Event)

	var view domain.MessageView
	require.NoError(t, json.Unmarshal(got.Data, &view))
	assert.Equal(t, int64(10), view.ID)
	assert.Equal(t, "hello bob", view.Message)
}

func TestGroupBroadcastAfterJoin(t *testing.T) {
	s := newServer(t)
	alice := s.dial(t, "tok-alice")
	bob := s.dial(t, "tok-bob")
	register(t, s, alice, 1)
	register(t, s, bob, 2)

	write(t, alice, ws.EventJoinGroup, map[string]any{"groupId": 7})
	write(t, bob, ws.EventJoinGroup, map[string]any{"groupId": 7})

	// A typing round trip proves both joins were applied by the hub.
	write(t, alice, realtime.EventTyping, map[string]any{"toUserId": 2, "fromUserId": 1})
	_ = read(t, bob)
	write(t, bob, realtime.EventTyping, map[string]any{"toUserId": 1, "fromUserId": 2})
	_ = read(t, alice)

	group := int64(7)
	s.router.DeliverGroup(context.Background(), &domain.MessageView{ID: 3, SenderID: 1, GroupID: &group, Message: "hi all"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		got := read(t, conn)
		assert.Equal(t, realtime.EventNewMessage, got.Event)
	}
}

func TestDisconnectMarksUserOffline(t *testing.T) {
	s := newServer(t)
	alice := s.dial(t, "tok-alice")
	register(t, s, alice, 1)

	require.NoError(t, alice.Close())
	assert.Eventually(t, func() bool { return !s.online(1) }, 2*time.Second, 10*time.Millisecond)
}

func TestHandshakeRejections(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name   string
		header http.Header
		status int
	}{
		{
			name:   "no token",
			header: http.Header{"Origin": {testOrigin}},
			status: http.StatusUnauthorized,
		},
		{
			name:   "unknown token",
			header: http.Header{"Origin": {testOrigin}, "Authorization": {"Bearer nope"}},
			status: http.StatusUnauthorized,
		},
		{
			name:   "foreign origin",
			header: http.Header{"Origin": {"http://evil.example"}, "Authorization": {"Bearer tok-alice"}},
			status: http.StatusForbidden,
		},
		{
			name:   "missing origin",
			header: http.Header{"Authorization": {"Bearer tok-alice"}},
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(s.url, tt.header)
			require.Error(t, err)
			require.True(t, errors.Is(err, websocket.ErrBadHandshake))
			require.NotNil(t, resp)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "bearer, abc")
	tok, err := ws.TokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.AddCookie(&http.Cookie{Name: ws.TokenCookie, Value: "from-cookie"})
	r.Header.Set("Authorization", "Bearer from-header")
	tok, err = ws.TokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", tok)

	_, err = ws.TokenFromRequest(httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Error(t, err)
}
