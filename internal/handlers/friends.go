package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"studygroup/internal/models"
	"studygroup/internal/repositories"
)

// FriendHandler lists the other users and searches them by username.
type FriendHandler struct {
	base
	users repositories.UserRepository
}

// NewFriendHandler constructs a FriendHandler.
func NewFriendHandler(users repositories.UserRepository, logger *logrus.Logger) *FriendHandler {
	return &FriendHandler{base: base{logger: logger}, users: users}
}

// ListFriends handles GET /friends.
func (h *FriendHandler) ListFriends(c *gin.Context) {
	h.renderFriends(c, nil)
}

// Search handles POST /friends/search.
func (h *FriendHandler) Search(c *gin.Context) {
	term := strings.TrimSpace(c.PostForm("searchUsername"))
	results, err := h.users.SearchOthers(c.Request.Context(), term, currentUserID(c))
	if err != nil {
		h.logStoreError(c, "search_users", err)
	}
	h.renderFriends(c, results)
}

func (h *FriendHandler) renderFriends(c *gin.Context, searchResults []models.UserSummary) {
	users, err := h.users.ListOthers(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logStoreError(c, "list_users", err)
	}
	render(c, http.StatusOK, "friends.html", gin.H{
		"Title":         "Friends",
		"Users":         orEmpty(users),
		"SearchResults": orEmpty(searchResults),
	})
}
