package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"studygroup/internal/middleware"
	"studygroup/internal/observability"
	"studygroup/internal/telemetry"
)

// base carries what every handler needs for logging, audit and rendering.
type base struct {
	logger *logrus.Logger
	audit  *telemetry.AuditEmitter
}

// logStoreError records a swallowed store failure.
func (b base) logStoreError(c *gin.Context, op string, err error) {
	observability.IncStoreError(op)
	b.log(c).WithError(err).WithField("operation", op).Error("store operation failed")
}

func (b base) log(c *gin.Context) *logrus.Entry {
	entry := b.logger.WithField("request_id", requestIDFromContext(c))
	if userID := userIDFromContext(c); userID != nil {
		entry = entry.WithField("user_id", *userID)
	}
	return entry
}

func (b base) emitAudit(c *gin.Context, level, text string) {
	if b.audit == nil {
		return
	}
	b.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// render writes page with data, adding the logged-in user when there is one.
func render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := c.Get(middleware.ContextUser); ok {
		data["User"] = middleware.CurrentUser(c)
	}
	c.HTML(status, page, data)
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
}

func currentUserID(c *gin.Context) int {
	return c.GetInt(middleware.ContextUserID)
}

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
