package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"studygroup/internal/models"
	"studygroup/internal/repositories"
)

// ProfileHandler shows and edits the caller's own profile.
type ProfileHandler struct {
	base
	users repositories.UserRepository
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(users repositories.UserRepository, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{base: base{logger: logger}, users: users}
}

// Show handles GET /profile.
func (h *ProfileHandler) Show(c *gin.Context) {
	render(c, http.StatusOK, "profile.html", gin.H{"Title": "Profile"})
}

// Update handles POST /profile. Blank fields keep their stored value.
func (h *ProfileHandler) Update(c *gin.Context) {
	update := models.ProfileUpdate{
		Bio:            strings.TrimSpace(c.PostForm("bio")),
		ProfilePicture: strings.TrimSpace(c.PostForm("profilePicture")),
		Username:       strings.TrimSpace(c.PostForm("username")),
	}
	if _, err := h.users.UpdateProfile(c.Request.Context(), currentUserID(c), update); err != nil {
		h.logStoreError(c, "update_profile", err)
	}
	redirect(c, "/profile")
}
