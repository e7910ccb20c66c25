package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"studygroup/internal/observability"
)

const ContextRequestID = "request_id"

// RequestID keeps a caller-supplied X-Request-Id or generates one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := observability.RequestIDFromRequest(c.Request)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set(observability.RequestIDHeader, requestID)
		}
		c.Set(ContextRequestID, requestID)
		c.Header(observability.RequestIDHeader, requestID)
		c.Next()
	}
}
