package ws

import (
	"net/http"
	"time"

	"dm-service/internal/observability"
)

// ConnInfo identifies one authenticated websocket for logs and lifecycle events.
type ConnInfo struct {
	ConnID      string
	UserID      string
	TraceID     string
	Client      observability.ClientMeta
	ConnectedAt time.Time
}

func newConnInfo(r *http.Request, userID, traceID string) ConnInfo {
	return ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		TraceID:     traceID,
		Client:      observability.ClientMetaFromRequest(r),
		ConnectedAt: time.Now(),
	}
}

func (i ConnInfo) identity() observability.Identity {
	return observability.Identity{
		UserID:   i.UserID,
		DeviceID: i.Client.DeviceID,
		IP:       i.Client.IP,
	}
}
