package ws

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"studygroup/internal/observability"
	"studygroup/internal/repositories"
)

// SessionReader resolves the logged-in user of a request.
type SessionReader interface {
	UserID(r *http.Request) (int, error)
}

// GroupWebSocketHandler streams new messages of one group to its members.
type GroupWebSocketHandler struct {
	hub       *Hub
	sessions  SessionReader
	groupRepo repositories.GroupRepository
	upgrader  *websocket.Upgrader
}

// NewGroupWebSocketHandler constructs a GroupWebSocketHandler. Browsers may
// connect from the serving host or from one of allowedOrigins.
func NewGroupWebSocketHandler(hub *Hub, sessions SessionReader, groupRepo repositories.GroupRepository, allowedOrigins []string) *GroupWebSocketHandler {
	return &GroupWebSocketHandler{hub: hub, sessions: sessions, groupRepo: groupRepo, upgrader: newUpgrader(allowedOrigins)}
}

// Handle upgrades GET /ws/groups/:id for a logged-in member.
func (h *GroupWebSocketHandler) Handle(c *gin.Context) {
	groupID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	ctx, span := otel.Tracer("studygroup/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.String("ws.kind", KindGroup), attribute.Int("ws.group_id", groupID))
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.sessions.UserID(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	member, err := h.groupRepo.IsMember(ctx, groupID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for group"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := newConnInfo(c, userID)
	h.hub.AddGroupClient(groupID, conn, info)

	go h.hub.readUntilClosed(KindGroup, strconv.Itoa(groupID), conn, info, func() {
		h.hub.RemoveGroupClient(groupID, conn)
	})
}

// readUntilClosed drains the connection until the peer goes away or stops
// answering pings, then unregisters it.
func (h *Hub) readUntilClosed(kind, resourceID string, conn *websocket.Conn, info ConnInfo, unregister func()) {
	observability.IncWSActive(kind)
	h.publishEvent(kind, resourceID, "ws_connect", info, "")

	done := make(chan struct{})
	var closeReason string
	defer func() {
		close(done)
		unregister()
		observability.DecWSActive(kind)
		h.publishEvent(kind, resourceID, "ws_disconnect", info, closeReason)
		conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	go h.keepAlive(conn, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.publishEvent(kind, resourceID, "ws_error", info, closeReason)
			}
			return
		}
	}
}

// keepAlive pings the peer every pingPeriod until done is closed or a ping fails.
func (h *Hub) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeWait)); err != nil {
				return
			}
		}
	}
}
