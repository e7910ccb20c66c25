package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"studygroup/internal/middleware"
)

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(middleware.ContextRequestID); id != "" {
		return id
	}

	requestID := uuid.NewString()
	c.Set(middleware.ContextRequestID, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *int {
	if userID := c.GetInt(middleware.ContextUserID); userID != 0 {
		return &userID
	}
	return nil
}
