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
	"studygroup/internal/telemetry"
)

// GroupBroadcaster pushes stored group messages to live subscribers and
// cuts off subscribers who lose access.
type GroupBroadcaster interface {
	BroadcastGroupMessage(msg models.GroupMessage)
	DropGroupMember(groupID, userID int) int
	CloseGroupRoom(groupID int) int
	GroupWatchers(groupID int) int
}

// GroupHandler manages groups, their membership and their messages.
type GroupHandler struct {
	base
	groups            repositories.GroupRepository
	messages          repositories.GroupMessageRepository
	hub               GroupBroadcaster
	requireMembership bool
}

// NewGroupHandler constructs a GroupHandler. With requireMembership set, every
// group mutation is limited to members of that group.
func NewGroupHandler(groups repositories.GroupRepository, messages repositories.GroupMessageRepository, hub GroupBroadcaster, requireMembership bool, logger *logrus.Logger, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		base:              base{logger: logger, audit: audit},
		groups:            groups,
		messages:          messages,
		hub:               hub,
		requireMembership: requireMembership,
	}
}

// ListGroups handles GET /groups.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.ListGroupsForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logStoreError(c, "list_groups", err)
	}
	render(c, http.StatusOK, "groups.html", gin.H{"Title": "Groups", "Groups": orEmpty(groups)})
}

// CreateGroup handles POST /groups. The creator joins in the same transaction.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	description := strings.TrimSpace(c.PostForm("description"))
	if name == "" {
		redirect(c, "/groups")
		return
	}

	group, err := h.groups.CreateGroup(c.Request.Context(), currentUserID(c), name, description)
	if err != nil {
		h.logStoreError(c, "create_group", err)
		redirect(c, "/groups")
		return
	}

	h.log(c).WithField("group_id", group.ID).Info("group created")
	h.emitAudit(c, telemetry.LevelInfo, "group created")
	redirect(c, "/groups")
}

// ShowGroup handles GET /group/:id.
func (h *GroupHandler) ShowGroup(c *gin.Context) {
	groupID, ok := paramID(c, "id")
	if !ok {
		redirect(c, "/groups")
		return
	}
	h.renderGroup(c, groupID, nil)
}

// SearchUsers handles POST /group/:id/search-users.
func (h *GroupHandler) SearchUsers(c *gin.Context) {
	groupID, ok := h.mutableGroup(c)
	if !ok {
		return
	}

	results, err := h.groups.SearchNonMembers(c.Request.Context(), groupID, strings.TrimSpace(c.PostForm("searchUsername")))
	if err != nil {
		h.logStoreError(c, "search_non_members", err)
	}
	h.renderGroup(c, groupID, results)
}

// AddMember handles POST /group/:id/add-member/:userId. Adding an existing member is a no-op.
func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, ok := h.mutableGroup(c)
	if !ok {
		return
	}
	if userID, ok := paramID(c, "userId"); ok {
		if err := h.groups.AddMember(c.Request.Context(), groupID, userID); err != nil {
			h.logStoreError(c, "add_member", err)
		}
	}
	redirect(c, groupPath(groupID))
}

// RemoveMember handles POST /group/:id/remove-member/:userId.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, ok := h.mutableGroup(c)
	if !ok {
		return
	}
	if userID, ok := paramID(c, "userId"); ok {
		if err := h.groups.RemoveMember(c.Request.Context(), groupID, userID); err != nil {
			h.logStoreError(c, "remove_member", err)
		} else if h.hub != nil {
			if closed := h.hub.DropGroupMember(groupID, userID); closed > 0 {
				h.log(c).WithFields(logrus.Fields{"group_id": groupID, "member_id": userID, "sockets": closed}).Info("live feed revoked")
			}
		}
	}
	redirect(c, groupPath(groupID))
}

// DeleteGroup handles POST /group/:id/delete.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	groupID, ok := h.mutableGroup(c)
	if !ok {
		return
	}

	if err := h.groups.DeleteGroup(c.Request.Context(), groupID); err != nil {
		h.logStoreError(c, "delete_group", err)
	} else {
		closed := 0
		if h.hub != nil {
			closed = h.hub.CloseGroupRoom(groupID)
		}
		h.log(c).WithFields(logrus.Fields{"group_id": groupID, "sockets": closed}).Info("group deleted")
		h.emitAudit(c, telemetry.LevelInfo, "group deleted")
	}
	redirect(c, "/groups")
}

// UpdateGroup handles POST /group/:id/update.
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	groupID, ok := h.mutableGroup(c)
	if !ok {
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	description := strings.TrimSpace(c.PostForm("description"))
	if err := h.groups.UpdateGroup(c.Request.Context(), groupID, name, description); err != nil {
		h.logStoreError(c, "update_group", err)
	}
	redirect(c, groupPath(groupID))
}

// PostMessage handles POST /group/:id/messages.
func (h *GroupHandler) PostMessage(c *gin.Context) {
	groupID, ok := h.mutableGroup(c)
	if !ok {
		return
	}

	if content := strings.TrimSpace(c.PostForm("content")); content != "" {
		msg, err := h.messages.CreateGroupMessage(c.Request.Context(), groupID, currentUserID(c), content)
		if err != nil {
			h.logStoreError(c, "create_group_message", err)
		} else if h.hub != nil {
			h.hub.BroadcastGroupMessage(msg)
		}
	}
	redirect(c, groupPath(groupID))
}

// mutableGroup parses the group id and applies the membership policy. When it
// returns false the response has already been written.
func (h *GroupHandler) mutableGroup(c *gin.Context) (int, bool) {
	groupID, ok := paramID(c, "id")
	if !ok {
		redirect(c, "/groups")
		return 0, false
	}
	if !h.requireMembership {
		return groupID, true
	}

	member, err := h.groups.IsMember(c.Request.Context(), groupID, currentUserID(c))
	if err != nil {
		h.logStoreError(c, "is_member", err)
		redirect(c, "/groups")
		return 0, false
	}
	if !member {
		h.log(c).WithFields(logrus.Fields{"group_id": groupID, "path": c.FullPath()}).Warn("group mutation by non-member denied")
		h.emitAudit(c, telemetry.LevelWarn, "group mutation denied")
		redirect(c, "/groups")
		return 0, false
	}
	return groupID, true
}

func (h *GroupHandler) renderGroup(c *gin.Context, groupID int, searchResults []models.UserSummary) {
	ctx := c.Request.Context()
	group, err := h.groups.GetGroup(ctx, groupID)
	if err != nil {
		if !errors.Is(err, repositories.ErrGroupNotFound) {
			h.logStoreError(c, "get_group", err)
		}
		redirect(c, "/groups")
		return
	}

	messages, err := h.messages.ListGroupMessages(ctx, groupID)
	if err != nil {
		h.logStoreError(c, "list_group_messages", err)
	}
	members, err := h.groups.ListMembers(ctx, groupID)
	if err != nil {
		h.logStoreError(c, "list_members", err)
	}

	online := 0
	if h.hub != nil {
		online = h.hub.GroupWatchers(groupID)
	}

	render(c, http.StatusOK, "group.html", gin.H{
		"Online":        online,
		"Title":         group.Name,
		"Group":         group,
		"Messages":      orEmpty(messages),
		"Members":       orEmpty(members),
		"SearchResults": orEmpty(searchResults),
	})
}

func groupPath(groupID int) string {
	return fmt.Sprintf("/group/%d", groupID)
}
