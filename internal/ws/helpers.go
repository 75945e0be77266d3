package ws

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"dm-service/internal/auth"
)

func newConnID() string {
	return uuid.NewString()
}

// tokenFromRequest reads the bearer credential from the Authorization header,
// a bare token header or the token query parameter, in that order.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token, _ := auth.BearerToken(header)
		return token
	}
	if token := r.Header.Get("token"); token != "" {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
