package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"studygroup/internal/observability"
)

const slowRequest = 500 * time.Millisecond

// AccessLog writes one entry per request.
func AccessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		entry := logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": elapsed.Milliseconds(),
			"request_id":  c.GetString(ContextRequestID),
			"ip":          c.ClientIP(),
		})
		if traceID := observability.TraceID(c.Request.Context()); traceID != "" {
			entry = entry.WithField("trace_id", traceID)
		}
		if userID := c.GetInt(ContextUserID); userID != 0 {
			entry = entry.WithField("user_id", userID)
		}

		switch {
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Error("request failed")
		case elapsed > slowRequest:
			entry.Warn("slow request")
		default:
			entry.Info("request")
		}
	}
}
