package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"dm-service/internal/apperr"
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation, apperr.SelfTarget:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Presence:
		return http.StatusConflict
	case apperr.Auth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a JSON error body. Store failures keep their cause in the log only.
func writeError(c *gin.Context, err error) {
	status := statusFor(apperr.KindOf(err))
	if status == http.StatusInternalServerError {
		log.Printf("request failed method=%s path=%s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}
