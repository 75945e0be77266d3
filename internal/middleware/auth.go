package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dm-service/internal/auth"
	"dm-service/internal/observability"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userID"

// AuthMiddleware resolves the bearer token through verifier and stores the
// caller under UserIDKey. Anything else ends the request with 401.
func AuthMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, "bad_header", "missing or malformed authorization")
			return
		}

		userID, err := verifier.Verify(c.Request.Context(), token)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			reject(c, "invalid_token", "invalid token")
			return
		case err != nil:
			log.Printf("auth verify failed path=%s: %v", c.FullPath(), err)
			reject(c, "verifier_error", "invalid token")
			return
		}

		trace.SpanFromContext(c.Request.Context()).SetAttributes(attribute.String("user.id", userID))
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func reject(c *gin.Context, reason, message string) {
	observability.IncAuthRejected("http", reason)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
