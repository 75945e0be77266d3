package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dm-service/internal/apperr"
	"dm-service/internal/auth"
	"dm-service/internal/models"
	"dm-service/internal/observability"
)

const wsKind = "dm"

// MessageService handles the messaging events of a connection.
type MessageService interface {
	SendMessage(ctx context.Context, sender Client, payload models.SendMessagePayload) error
	StartChat(ctx context.Context, sender Client, payload models.StartChatPayload) error
}

// CallRelay handles the call signaling events of a connection.
type CallRelay interface {
	StartCall(ctx context.Context, from Client, payload models.StartCallPayload) error
	Offer(ctx context.Context, from Client, payload models.OfferPayload) error
	Answer(ctx context.Context, from Client, payload models.AnswerPayload) error
	IceCandidate(ctx context.Context, from Client, payload models.IceCandidatePayload) error
	EndCall(ctx context.Context, from Client, payload models.EndCallPayload) error
	RejectCall(ctx context.Context, from Client, payload models.RejectCallPayload) error
}

type eventHandler func(ctx context.Context, client Client, data json.RawMessage) error

// GatewayOptions tunes a Gateway.
type GatewayOptions struct {
	// EventTimeout bounds every inbound event, including its store calls.
	EventTimeout time.Duration
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
}

// Gateway authenticates websocket connections, keeps presence in the Hub and
// dispatches inbound events.
type Gateway struct {
	hub      *Hub
	verifier auth.Verifier
	handlers map[string]eventHandler
	opts     GatewayOptions
	upgrader websocket.Upgrader
}

// NewGateway wires the dispatch table.
func NewGateway(hub *Hub, verifier auth.Verifier, messages MessageService, calls CallRelay, opts GatewayOptions) *Gateway {
	if opts.EventTimeout <= 0 {
		opts.EventTimeout = 5 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	g := &Gateway{
		hub:      hub,
		verifier: verifier,
		opts:     opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	g.handlers = map[string]eventHandler{
		models.EventSendMessage:  handle(messages.SendMessage),
		models.EventStartChat:    handle(messages.StartChat),
		models.EventStartCall:    handle(calls.StartCall),
		models.EventOffer:        handle(calls.Offer),
		models.EventAnswer:       handle(calls.Answer),
		models.EventIceCandidate: handle(calls.IceCandidate),
		models.EventEndCall:      handle(calls.EndCall),
		models.EventRejectCall:   handle(calls.RejectCall),
	}
	return g
}

func handle[T any](fn func(ctx context.Context, client Client, payload T) error) eventHandler {
	return func(ctx context.Context, client Client, data json.RawMessage) error {
		var payload T
		if err := models.Decode(data, &payload); err != nil {
			return apperr.Wrap(apperr.Validation, "Invalid payload", err)
		}
		return fn(ctx, client, payload)
	}
}

// Handle upgrades the request and serves the connection until it closes.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("dm-service/ws").Start(c.Request.Context(), "ws.handshake")
	token := tokenFromRequest(c.Request)

	wsConn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.End()
		return
	}

	userID, err := g.verify(ctx, token)
	if err != nil {
		span.RecordError(err)
		span.End()
		g.reject(wsConn, err)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))

	info := newConnInfo(c.Request, userID, span.SpanContext().TraceID().String())
	span.End()

	g.serve(context.WithoutCancel(ctx), newConn(wsConn, info, g.opts.SendBuffer))
}

func (g *Gateway) verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperr.New(apperr.Auth, "Unauthorized")
	}
	userID, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return "", apperr.Wrap(apperr.Auth, "Unauthorized", err)
	}
	return userID, nil
}

// reject writes a single error event and closes the socket.
func (g *Gateway) reject(wsConn *websocket.Conn, err error) {
	log.Printf("ws authentication failed: %v", err)
	observability.IncWSEvent(wsKind, "ws_auth_failed")
	observability.IncAuthRejected("ws", "unauthorized")
	_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = wsConn.WriteJSON(models.ErrorEvent(apperr.PublicMessage(err)))
	_ = wsConn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"),
		time.Now().Add(writeWait))
	_ = wsConn.Close()
}

func (g *Gateway) serve(ctx context.Context, conn *Conn) {
	userID := conn.UserID()
	go conn.writePump()

	if prev := g.hub.Register(userID, conn); prev != nil {
		log.Printf("ws connection replaced user_id=%s conn_id=%s", userID, conn.info.ConnID)
	}
	observability.IncWSActive(wsKind)
	g.publish(ctx, conn.info, "ws_connect", "")
	log.Printf("ws connected user_id=%s conn_id=%s", userID, conn.info.ConnID)

	conn.Send(models.NewEvent(models.EventConnected, models.ConnectedPayload{
		UserID:      userID,
		OnlineUsers: g.hub.OnlineIDs(),
	}))
	g.hub.Broadcast(models.NewEvent(models.EventUserStatus, models.UserStatusPayload{UserID: userID, Status: models.StatusOnline}))

	reason := g.readLoop(ctx, conn)

	if g.hub.UnregisterIfCurrent(userID, conn) {
		g.hub.Broadcast(models.NewEvent(models.EventUserStatus, models.UserStatusPayload{UserID: userID, Status: models.StatusOffline}))
	}
	conn.close()
	observability.DecWSActive(wsKind)
	g.publish(ctx, conn.info, "ws_disconnect", reason)
	log.Printf("ws disconnected user_id=%s conn_id=%s reason=%q", userID, conn.info.ConnID, reason)
}

// readLoop handles frames one at a time in arrival order and returns the close reason.
func (g *Gateway) readLoop(ctx context.Context, conn *Conn) string {
	conn.prepareRead()
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.publish(ctx, conn.info, "ws_error", err.Error())
			}
			return err.Error()
		}

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			conn.Send(models.ErrorEvent("Invalid event"))
			continue
		}
		g.dispatch(ctx, conn, frame)
	}
}

func (g *Gateway) dispatch(ctx context.Context, conn *Conn, frame models.Frame) {
	handler, ok := g.handlers[frame.Type]
	if !ok {
		observability.IncWSEvent(wsKind, "unknown")
		conn.Send(models.ErrorEvent("Unknown event"))
		return
	}
	observability.IncWSEvent(wsKind, frame.Type)

	ctx, span := otel.Tracer("dm-service/ws").Start(ctx, "ws."+frame.Type,
		trace.WithAttributes(attribute.String("user.id", conn.UserID())))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, g.opts.EventTimeout)
	defer cancel()

	if err := handler(ctx, conn, frame.Data); err != nil {
		span.RecordError(err)
		g.fail(conn, frame.Type, err)
	}
}

// fail reports an event failure to the initiating connection only.
func (g *Gateway) fail(conn *Conn, eventType string, err error) {
	kind := apperr.KindOf(err)
	observability.IncEventError(eventType, kind.String())
	if kind == apperr.Persistence || kind == apperr.Internal {
		log.Printf("ws event failed event=%s user_id=%s kind=%s: %v", eventType, conn.UserID(), kind, err)
	} else {
		log.Printf("ws event rejected event=%s user_id=%s kind=%s: %s", eventType, conn.UserID(), kind, apperr.PublicMessage(err))
	}
	conn.Send(models.ErrorEvent(apperr.PublicMessage(err)))
}

func (g *Gateway) publish(ctx context.Context, info ConnInfo, event, reason string) {
	observability.PublishWSEvent(ctx, observability.WSEvent{
		Kind:       wsKind,
		Event:      event,
		ConnID:     info.ConnID,
		DurationMS: time.Since(info.ConnectedAt).Milliseconds(),
		Reason:     reason,
	}, info.identity(), info.Client.RequestID, info.TraceID)
}
