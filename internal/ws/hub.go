package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"studygroup/internal/models"
	"studygroup/internal/observability"
)

const (
	KindGroup        = "group"
	KindConversation = "conversation"
)

// EventPublisher receives connection lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

type client struct {
	conn      *websocket.Conn
	info      ConnInfo
	writeWait time.Duration
	mu        sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// close sends a close frame with reason and drops the connection.
func (c *client) close(code int, reason string) {
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(c.writeWait))
	_ = c.conn.Close()
}

// Hub maintains active websocket rooms: one per group and one per pair of
// users holding a conversation.
type Hub struct {
	groupRooms        map[int]map[*websocket.Conn]*client
	conversationRooms map[string]map[*websocket.Conn]*client
	mu                sync.RWMutex

	// writeWait bounds every write. A peer that answers no ping within
	// pongWait is dropped; pings go out every pingPeriod.
	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration

	publisher EventPublisher
	logger    *logrus.Logger
}

// NewHub creates an empty hub. publisher may be nil.
func NewHub(publisher EventPublisher, logger *logrus.Logger) *Hub {
	return &Hub{
		groupRooms:        make(map[int]map[*websocket.Conn]*client),
		conversationRooms: make(map[string]map[*websocket.Conn]*client),
		writeWait:         defaultWriteWait,
		pongWait:          defaultPongWait,
		pingPeriod:        defaultPongWait * 9 / 10,
		publisher:         publisher,
		logger:            logger,
	}
}

// ConversationKey identifies the room shared by two users regardless of who is asking.
func ConversationKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// AddGroupClient registers a websocket connection to a group room.
func (h *Hub) AddGroupClient(groupID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groupRooms[groupID]; !ok {
		h.groupRooms[groupID] = make(map[*websocket.Conn]*client)
	}
	h.groupRooms[groupID][conn] = &client{conn: conn, info: info, writeWait: h.writeWait}
}

// RemoveGroupClient removes a group websocket connection.
func (h *Hub) RemoveGroupClient(groupID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.groupRooms[groupID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.groupRooms, groupID)
		}
	}
}

// AddConversationClient registers a connection to the room of users a and b.
func (h *Hub) AddConversationClient(a, b int, conn *websocket.Conn, info ConnInfo) {
	key := ConversationKey(a, b)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conversationRooms[key]; !ok {
		h.conversationRooms[key] = make(map[*websocket.Conn]*client)
	}
	h.conversationRooms[key][conn] = &client{conn: conn, info: info, writeWait: h.writeWait}
}

// RemoveConversationClient removes a conversation websocket connection.
func (h *Hub) RemoveConversationClient(a, b int, conn *websocket.Conn) {
	key := ConversationKey(a, b)
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.conversationRooms[key]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conversationRooms, key)
		}
	}
}

// GroupWatchers returns how many connections are open on the group's room.
func (h *Hub) GroupWatchers(groupID int) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groupRooms[groupID])
}

// DropGroupMember closes every connection userID holds on the group's room
// and returns how many were closed.
func (h *Hub) DropGroupMember(groupID, userID int) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	var dropped []*client
	for conn, cl := range h.groupRooms[groupID] {
		if cl.info.UserID == userID {
			dropped = append(dropped, cl)
			delete(h.groupRooms[groupID], conn)
		}
	}
	if len(h.groupRooms[groupID]) == 0 {
		delete(h.groupRooms, groupID)
	}
	h.mu.Unlock()

	for _, cl := range dropped {
		cl.close(websocket.ClosePolicyViolation, "membership revoked")
	}
	return len(dropped)
}

// CloseGroupRoom closes every connection on the group's room and returns how many were closed.
func (h *Hub) CloseGroupRoom(groupID int) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	dropped := snapshot(h.groupRooms[groupID])
	delete(h.groupRooms, groupID)
	h.mu.Unlock()

	for _, cl := range dropped {
		cl.close(websocket.CloseGoingAway, "group deleted")
	}
	return len(dropped)
}

// BroadcastGroupMessage sends msg to all clients watching its group.
func (h *Hub) BroadcastGroupMessage(msg models.GroupMessage) {
	if h == nil {
		return
	}
	h.mu.RLock()
	clients := snapshot(h.groupRooms[msg.GroupID])
	h.mu.RUnlock()

	payload, _ := json.Marshal(models.GroupEvent{Type: "message", Message: &msg})
	for _, cl := range clients {
		if err := cl.write(payload); err != nil {
			h.dropClient(KindGroup, fmt.Sprint(msg.GroupID), cl, err)
			h.RemoveGroupClient(msg.GroupID, cl.conn)
		}
	}
}

// BroadcastDirectMessage sends msg to all clients watching the sender/recipient conversation.
func (h *Hub) BroadcastDirectMessage(msg models.Message) {
	if h == nil {
		return
	}
	key := ConversationKey(msg.FromID, msg.ToID)
	h.mu.RLock()
	clients := snapshot(h.conversationRooms[key])
	h.mu.RUnlock()

	payload, _ := json.Marshal(models.ChatEvent{Type: "message", Message: &msg})
	for _, cl := range clients {
		if err := cl.write(payload); err != nil {
			h.dropClient(KindConversation, key, cl, err)
			h.RemoveConversationClient(msg.FromID, msg.ToID, cl.conn)
		}
	}
}

func snapshot(room map[*websocket.Conn]*client) []*client {
	clients := make([]*client, 0, len(room))
	for _, cl := range room {
		clients = append(clients, cl)
	}
	return clients
}

func (h *Hub) dropClient(kind, resourceID string, cl *client, err error) {
	h.logger.WithError(err).WithFields(logrus.Fields{"kind": kind, "resource_id": resourceID, "conn_id": cl.info.ConnID}).
		Warn("websocket write error")
	cl.conn.Close()
	h.publishEvent(kind, resourceID, "ws_error", cl.info, err.Error())
}

func (h *Hub) publishEvent(kind, resourceID, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(kind, event)
	if h.publisher == nil {
		return
	}

	envelope := observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        kind,
				"resource_id": resourceID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":    info.UserID,
				"ip":         info.IP,
				"request_id": info.RequestID,
				"trace_id":   info.TraceID,
			},
		},
	}
	if err := h.publisher.Publish(context.Background(), wsRoutingKey(kind), envelope); err != nil {
		h.logger.WithError(err).Debug("ws event publish failed")
	}
}

func wsRoutingKey(kind string) string {
	if kind == KindGroup {
		return "ws_events.groups"
	}
	return "ws_events.messages"
}
