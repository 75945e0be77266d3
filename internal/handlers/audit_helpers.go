package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dm-service/internal/middleware"
	"dm-service/internal/observability"
)

const requestIDKey = "requestID"

// requestIDFromContext returns the caller's X-Request-Id, minting one per request when absent.
func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}

	id := observability.ClientMetaFromRequest(c.Request).RequestID
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	return id
}

// userIDFromContext is nil on routes outside the auth middleware.
func userIDFromContext(c *gin.Context) *string {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		return nil
	}
	return &userID
}
