package ws

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"studygroup/internal/observability"
)

type ConnInfo struct {
	ConnID      string
	UserID      int
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnInfo(c *gin.Context, userID int) ConnInfo {
	return ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		IP:          c.ClientIP(),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     observability.TraceID(c.Request.Context()),
		ConnectedAt: time.Now(),
	}
}
