package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"studygroup/internal/logging"
	"studygroup/internal/mocks"
	"studygroup/internal/models"
	"studygroup/internal/observability"
	"studygroup/internal/repositories"
)

type switchableSession struct {
	mu     sync.Mutex
	userID int
}

func (s *switchableSession) set(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

func (s *switchableSession) UserID(*http.Request) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, nil
}

type fixedSession struct {
	userID int
}

func (s fixedSession) UserID(*http.Request) (int, error) {
	if s.userID == 0 {
		return 0, errors.New("no session")
	}
	return s.userID, nil
}

func TestHubAddAndRemoveGroupClient(t *testing.T) {
	hub := NewHub(nil, logging.Discard())

	hub.AddGroupClient(2, nil, ConnInfo{})
	if len(hub.groupRooms) != 1 {
		t.Fatalf("expected group room to be created")
	}

	hub.RemoveGroupClient(2, nil)
	if len(hub.groupRooms) != 0 {
		t.Fatalf("expected group room to be removed")
	}
}

func TestHubConversationRoomIsSharedByBothUsers(t *testing.T) {
	hub := NewHub(nil, logging.Discard())

	hub.AddConversationClient(1, 2, nil, ConnInfo{})
	require.Len(t, hub.conversationRooms, 1)
	_, ok := hub.conversationRooms[ConversationKey(2, 1)]
	require.True(t, ok)

	hub.RemoveConversationClient(2, 1, nil)
	assert.Empty(t, hub.conversationRooms)
}

func TestConversationKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "3:9", ConversationKey(9, 3))
	assert.Equal(t, ConversationKey(3, 9), ConversationKey(9, 3))
}

func TestBroadcastOnNilHubIsNoop(t *testing.T) {
	var hub *Hub
	hub.BroadcastGroupMessage(models.GroupMessage{GroupID: 1})
	hub.BroadcastDirectMessage(models.Message{FromID: 1, ToID: 2})
}

func TestPublishEventUsesKindRoutingKey(t *testing.T) {
	pub := new(mocks.PublisherMock)
	hub := NewHub(pub, logging.Discard())

	pub.On("Publish", mock.Anything, "ws_events.groups", mock.MatchedBy(func(e observability.EventEnvelope) bool {
		return e.EventType == "ws_events" && e.EventName == "ws_connect"
	})).Return(nil).Once()
	pub.On("Publish", mock.Anything, "ws_events.messages", mock.Anything).Return(errors.New("down")).Once()

	hub.publishEvent(KindGroup, "3", "ws_connect", ConnInfo{ConnID: "c1", ConnectedAt: time.Now()}, "")
	hub.publishEvent(KindConversation, "1:2", "ws_disconnect", ConnInfo{ConnID: "c2", ConnectedAt: time.Now()}, "eof")

	pub.AssertExpectations(t)
}

func newWSServer(t *testing.T, route string, handler gin.HandlerFunc) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET(route, handler)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestGroupWebSocketReceivesBroadcast(t *testing.T) {
	hub := NewHub(nil, logging.Discard())
	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	handler := NewGroupWebSocketHandler(hub, fixedSession{userID: 1}, groupRepo, nil)
	srv := newWSServer(t, "/ws/groups/:id", handler.Handle)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/groups/5"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.groupRooms[5]) == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastGroupMessage(models.GroupMessage{ID: 8, GroupID: 5, FromID: 1, Content: "hello", FromUsername: "alice"})

	var event models.GroupEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "message", event.Type)
	require.NotNil(t, event.Message)
	assert.Equal(t, "hello", event.Message.Content)
	groupRepo.AssertExpectations(t)
}

func TestGroupWebSocketRejectsNonMember(t *testing.T) {
	hub := NewHub(nil, logging.Discard())
	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, 5, 2).Return(false, nil).Once()
	handler := NewGroupWebSocketHandler(hub, fixedSession{userID: 2}, groupRepo, nil)
	srv := newWSServer(t, "/ws/groups/:id", handler.Handle)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/groups/5"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGroupWebSocketRequiresSession(t *testing.T) {
	hub := NewHub(nil, logging.Discard())
	handler := NewGroupWebSocketHandler(hub, fixedSession{}, new(mocks.GroupRepositoryMock), nil)
	srv := newWSServer(t, "/ws/groups/:id", handler.Handle)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/groups/5"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConversationWebSocketReceivesBothDirections(t *testing.T) {
	hub := NewHub(nil, logging.Discard())
	userRepo := new(mocks.UserRepositoryMock)
	userRepo.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Username: "bob"}, nil).Once()
	handler := NewConversationWebSocketHandler(hub, fixedSession{userID: 1}, userRepo, nil)
	srv := newWSServer(t, "/ws/messages/:userId", handler.Handle)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/messages/2"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.conversationRooms[ConversationKey(1, 2)]) == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastDirectMessage(models.Message{ID: 1, FromID: 2, ToID: 1, Content: "hi alice"})
	hub.BroadcastDirectMessage(models.Message{ID: 2, FromID: 3, ToID: 1, Content: "other conversation"})
	hub.BroadcastDirectMessage(models.Message{ID: 3, FromID: 1, ToID: 2, Content: "hi bob"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var first, second models.ChatEvent
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "hi alice", first.Message.Content)
	assert.Equal(t, "hi bob", second.Message.Content)
}

func TestConversationWebSocketUnknownUser(t *testing.T) {
	hub := NewHub(nil, logging.Discard())
	userRepo := new(mocks.UserRepositoryMock)
	userRepo.On("GetUser", mock.Anything, 9).Return(nil, repositories.ErrUserNotFound).Once()
	handler := NewConversationWebSocketHandler(hub, fixedSession{userID: 1}, userRepo, nil)
	srv := newWSServer(t, "/ws/messages/:userId", handler.Handle)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/messages/9"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpgraderOriginPolicy(t *testing.T) {
	upgrader := newUpgrader([]string{"https://App.Study.example/"})
	cases := map[string]bool{
		"":                          true,
		"http://chat.local:3000":    true,
		"https://chat.local:3000":   true,
		"https://app.study.example": true,
		"https://evil.example":      false,
		"null":                      false,
	}

	for origin, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://chat.local:3000/ws/groups/1", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, upgrader.CheckOrigin(req), origin)
	}
}

func TestGroupWebSocketRejectsCrossSiteOrigin(t *testing.T) {
	hub := NewHub(nil, logging.Discard())
	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil)
	handler := NewGroupWebSocketHandler(hub, fixedSession{userID: 1}, groupRepo, nil)
	srv := newWSServer(t, "/ws/groups/:id", handler.Handle)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/groups/5"), http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.GroupWatchers(5))
}

func dialGroup(t *testing.T, srv *httptest.Server, hub *Hub, groupID, want int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/groups/"+strconv.Itoa(groupID)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.GroupWatchers(groupID) == want }, time.Second, 10*time.Millisecond)
	return conn
}

func TestDropGroupMemberClosesOnlyThatUser(t *testing.T) {
	hub := NewHub(nil, logging.Discard())
	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, 5, mock.Anything).Return(true, nil)
	sessions := &switchableSession{}
	handler := NewGroupWebSocketHandler(hub, sessions, groupRepo, nil)
	srv := newWSServer(t, "/ws/groups/:id", handler.Handle)

	sessions.set(1)
	alice := dialGroup(t, srv, hub, 5, 1)
	sessions.set(2)
	bob := dialGroup(t, srv, hub, 5, 2)

	assert.Equal(t, 1, hub.DropGroupMember(5, 2))
	assert.Equal(t, 0, hub.DropGroupMember(5, 2))
	assert.Equal(t, 1, hub.GroupWatchers(5))

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := bob.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)

	hub.BroadcastGroupMessage(models.GroupMessage{ID: 1, GroupID: 5, FromID: 1, Content: "members only"})
	var event models.GroupEvent
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, alice.ReadJSON(&event))
	assert.Equal(t, "members only", event.Message.Content)

	assert.Equal(t, 1, hub.CloseGroupRoom(5))
	assert.Equal(t, 0, hub.GroupWatchers(5))
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = alice.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestRevocationOnNilHubIsNoop(t *testing.T) {
	var hub *Hub
	assert.Equal(t, 0, hub.DropGroupMember(1, 2))
	assert.Equal(t, 0, hub.CloseGroupRoom(1))
	assert.Equal(t, 0, hub.GroupWatchers(1))
}

func newFastHub() *Hub {
	hub := NewHub(nil, logging.Discard())
	hub.pongWait, hub.pingPeriod = 300*time.Millisecond, 100*time.Millisecond
	return hub
}

func TestSilentPeerIsDroppedAfterPongWait(t *testing.T) {
	hub := newFastHub()
	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil)
	handler := NewGroupWebSocketHandler(hub, fixedSession{userID: 1}, groupRepo, nil)
	srv := newWSServer(t, "/ws/groups/:id", handler.Handle)

	// never reads, so pings go unanswered
	dialGroup(t, srv, hub, 5, 1)

	require.Eventually(t, func() bool { return hub.GroupWatchers(5) == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestResponsivePeerStaysConnected(t *testing.T) {
	hub := newFastHub()
	groupRepo := new(mocks.GroupRepositoryMock)
	groupRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil)
	handler := NewGroupWebSocketHandler(hub, fixedSession{userID: 1}, groupRepo, nil)
	srv := newWSServer(t, "/ws/groups/:id", handler.Handle)

	conn := dialGroup(t, srv, hub, 5, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	time.Sleep(3 * hub.pongWait)
	assert.Equal(t, 1, hub.GroupWatchers(5))
}
