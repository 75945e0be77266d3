// Package signaling relays call negotiation between two connected users.
// It keeps no call state: every event is checked against the hub and
// forwarded as is.
package signaling

import (
	"context"
	"strings"

	"dm-service/internal/apperr"
	"dm-service/internal/models"
	"dm-service/internal/observability"
	"dm-service/internal/ws"
)

const (
	msgSelfCall     = "Cannot call yourself"
	msgPeerOffline  = "Recipient is offline"
	msgPeerRequired = "Recipient ID is required"
	msgCallerNeeded = "Caller ID is required"
	msgSignalNeeded = "Signaling payload is required"
)

// Relay implements ws.CallRelay on top of the connection hub.
type Relay struct {
	hub *ws.Hub
}

func NewRelay(hub *ws.Hub) *Relay {
	return &Relay{hub: hub}
}

func (r *Relay) StartCall(ctx context.Context, from ws.Client, payload models.StartCallPayload) error {
	return r.relay(from, payload.RecipientID, payload, msgPeerRequired, models.EventIncomingCall,
		models.IncomingCallPayload{CallerID: from.UserID()})
}

func (r *Relay) Offer(ctx context.Context, from ws.Client, payload models.OfferPayload) error {
	return r.relay(from, payload.RecipientID, payload, msgPeerRequired, models.EventOffer,
		models.OfferRelayPayload{CallerID: from.UserID(), Offer: payload.Offer})
}

func (r *Relay) Answer(ctx context.Context, from ws.Client, payload models.AnswerPayload) error {
	return r.relay(from, payload.CallerID, payload, msgCallerNeeded, models.EventAnswer,
		models.AnswerRelayPayload{AnswererID: from.UserID(), Answer: payload.Answer})
}

func (r *Relay) IceCandidate(ctx context.Context, from ws.Client, payload models.IceCandidatePayload) error {
	return r.relay(from, payload.RecipientID, payload, msgPeerRequired, models.EventIceCandidate,
		models.IceCandidateRelayPayload{SenderID: from.UserID(), Candidate: payload.Candidate})
}

func (r *Relay) EndCall(ctx context.Context, from ws.Client, payload models.EndCallPayload) error {
	return r.relay(from, payload.RecipientID, payload, msgPeerRequired, models.EventCallEnded,
		models.CallEndedPayload{SenderID: from.UserID()})
}

func (r *Relay) RejectCall(ctx context.Context, from ws.Client, payload models.RejectCallPayload) error {
	return r.relay(from, payload.CallerID, payload, msgCallerNeeded, models.EventCallRejected,
		models.CallRejectedPayload{RejecterID: from.UserID()})
}

// relay validates the inbound payload, checks the peer and queues the event on
// the peer's connection.
func (r *Relay) relay(from ws.Client, peerID string, inbound any, missingPeer, eventType string, outbound any) error {
	if err := models.Validate(inbound); err != nil {
		field, _, _ := models.InvalidField(err)
		switch field {
		case "RecipientID", "CallerID":
			return apperr.Wrap(apperr.Validation, missingPeer, err)
		default:
			return apperr.Wrap(apperr.Validation, msgSignalNeeded, err)
		}
	}

	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return apperr.New(apperr.Validation, missingPeer)
	}
	if peerID == from.UserID() {
		return apperr.New(apperr.SelfTarget, msgSelfCall)
	}

	if !r.hub.SendTo(peerID, models.NewEvent(eventType, outbound)) {
		return apperr.New(apperr.Presence, msgPeerOffline)
	}
	observability.IncSignalRelayed(eventType)
	return nil
}
