package observability

// WSEventsRoutingKey routes websocket lifecycle events on the broker.
const WSEventsRoutingKey = "ws_events.dm"

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// WSEvent describes one connect, disconnect or error of a websocket.
type WSEvent struct {
	Kind       string `json:"kind"`
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
}

// Identity is who and where a websocket belongs to.
type Identity struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id,omitempty"`
	IP       string `json:"ip"`
}

type wsEventPayload struct {
	WS       WSEvent  `json:"ws"`
	Identity Identity `json:"identity"`
}

// NewWSEventEnvelope wraps a websocket lifecycle event for publishing.
func NewWSEventEnvelope(event WSEvent, identity Identity) EventEnvelope {
	return EventEnvelope{
		EventType: "ws_events",
		EventName: event.Event,
		Payload:   wsEventPayload{WS: event, Identity: identity},
	}
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
