package ws

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"studygroup/internal/repositories"
)

// ConversationWebSocketHandler streams new direct messages between the caller and another user.
type ConversationWebSocketHandler struct {
	hub      *Hub
	sessions SessionReader
	userRepo repositories.UserRepository
	upgrader *websocket.Upgrader
}

// NewConversationWebSocketHandler constructs a ConversationWebSocketHandler.
func NewConversationWebSocketHandler(hub *Hub, sessions SessionReader, userRepo repositories.UserRepository, allowedOrigins []string) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{hub: hub, sessions: sessions, userRepo: userRepo, upgrader: newUpgrader(allowedOrigins)}
}

// Handle upgrades GET /ws/messages/:userId.
func (h *ConversationWebSocketHandler) Handle(c *gin.Context) {
	otherID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	ctx, span := otel.Tracer("studygroup/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.String("ws.kind", KindConversation), attribute.Int("ws.other_id", otherID))
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.sessions.UserID(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	if _, err := h.userRepo.GetUser(ctx, otherID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := newConnInfo(c, userID)
	h.hub.AddConversationClient(userID, otherID, conn, info)

	go h.hub.readUntilClosed(KindConversation, ConversationKey(userID, otherID), conn, info, func() {
		h.hub.RemoveConversationClient(userID, otherID, conn)
	})
}
