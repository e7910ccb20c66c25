package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"studygroup/internal/models"
	"studygroup/internal/repositories"
)

// DirectBroadcaster pushes a stored direct message to live subscribers of the conversation.
type DirectBroadcaster interface {
	BroadcastDirectMessage(msg models.Message)
}

// MessageHandler serves the inbox and one-to-one conversations.
type MessageHandler struct {
	base
	messages repositories.MessageRepository
	users    repositories.UserRepository
	hub      DirectBroadcaster
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(messages repositories.MessageRepository, users repositories.UserRepository, hub DirectBroadcaster, logger *logrus.Logger) *MessageHandler {
	return &MessageHandler{base: base{logger: logger}, messages: messages, users: users, hub: hub}
}

// Inbox handles GET /messages.
func (h *MessageHandler) Inbox(c *gin.Context) {
	contacts, err := h.messages.ListContacts(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logStoreError(c, "list_contacts", err)
	}
	render(c, http.StatusOK, "messages.html", gin.H{"Title": "Messages", "Contacts": orEmpty(contacts)})
}

// Conversation handles GET /messages/:userId.
func (h *MessageHandler) Conversation(c *gin.Context) {
	otherID, ok := paramID(c, "userId")
	if !ok {
		redirect(c, "/messages")
		return
	}

	recipient, err := h.users.GetUser(c.Request.Context(), otherID)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			h.logStoreError(c, "get_user", err)
		}
		redirect(c, "/messages")
		return
	}

	messages, err := h.messages.ListConversation(c.Request.Context(), currentUserID(c), otherID)
	if err != nil {
		h.logStoreError(c, "list_conversation", err)
	}
	render(c, http.StatusOK, "conversation.html", gin.H{
		"Title":     "Chat with " + recipient.Username,
		"Recipient": recipient,
		"Messages":  orEmpty(messages),
	})
}

// Send handles POST /messages/:userId. The recipient is not re-checked; a bad
// id fails in the store and is only logged.
func (h *MessageHandler) Send(c *gin.Context) {
	otherID, ok := paramID(c, "userId")
	if !ok {
		redirect(c, "/messages")
		return
	}

	if content := strings.TrimSpace(c.PostForm("content")); content != "" {
		msg, err := h.messages.CreateMessage(c.Request.Context(), currentUserID(c), otherID, content)
		if err != nil {
			h.logStoreError(c, "create_message", err)
		} else if h.hub != nil {
			h.hub.BroadcastDirectMessage(msg)
		}
	}
	redirect(c, fmt.Sprintf("/messages/%d", otherID))
}
