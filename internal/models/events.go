package models

import (
	"encoding/json"
	"time"
)

// Inbound event names.
const (
	EventSendMessage  = "sendMessage"
	EventStartChat    = "startChat"
	EventStartCall    = "startCall"
	EventOffer        = "offer"
	EventAnswer       = "answer"
	EventIceCandidate = "iceCandidate"
	EventEndCall      = "endCall"
	EventRejectCall   = "rejectCall"
)

// Outbound event names not shared with inbound ones.
const (
	EventConnected    = "connected"
	EventUserStatus   = "userStatus"
	EventChatStarted  = "chatStarted"
	EventMessage      = "message"
	EventChatUpdated  = "chatUpdated"
	EventError        = "error"
	EventIncomingCall = "incomingCall"
	EventCallEnded    = "callEnded"
	EventCallRejected = "callRejected"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Frame is the wire envelope read from a client.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event is the wire envelope written to a client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewEvent(eventType string, data any) Event {
	return Event{Type: eventType, Data: data}
}

func ErrorEvent(message string) Event {
	return Event{Type: EventError, Data: ErrorPayload{Message: message}}
}

type SendMessagePayload struct {
	RecipientID   string `json:"recipientId" validate:"required_without=ReceiverEmail"`
	ReceiverEmail string `json:"receiverEmail" validate:"omitempty,email"`
	Content       string `json:"content" validate:"required"`
	TempID        string `json:"tempId"`
}

type StartChatPayload struct {
	RecipientID string `json:"recipientId" validate:"required"`
}

type StartCallPayload struct {
	RecipientID string `json:"recipientId" validate:"required"`
}

type OfferPayload struct {
	RecipientID string          `json:"recipientId" validate:"required"`
	Offer       json.RawMessage `json:"offer" validate:"payload"`
}

type AnswerPayload struct {
	CallerID string          `json:"callerId" validate:"required"`
	Answer   json.RawMessage `json:"answer" validate:"payload"`
}

type IceCandidatePayload struct {
	RecipientID string          `json:"recipientId" validate:"required"`
	Candidate   json.RawMessage `json:"candidate" validate:"payload"`
}

type EndCallPayload struct {
	RecipientID string `json:"recipientId" validate:"required"`
}

type RejectCallPayload struct {
	CallerID string `json:"callerId" validate:"required"`
}

type ConnectedPayload struct {
	UserID      string   `json:"userId"`
	OnlineUsers []string `json:"onlineUsers"`
}

type UserStatusPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type ChatStartedPayload struct {
	With        string `json:"with"`
	ChatGroupID string `json:"chatGroupId"`
}

type MessagePayload struct {
	ID          string    `json:"id"`
	ChatGroupID string    `json:"chatGroupId"`
	SenderID    string    `json:"senderId"`
	Content     string    `json:"content"`
	Emoji       string    `json:"emoji"`
	CreatedAt   time.Time `json:"createdAt"`
	TempID      string    `json:"tempId,omitempty"`
}

// LastMessage summarises the newest message of a chat.
type LastMessage struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Emoji        string    `json:"emoji"`
	CreatedAt    time.Time `json:"createdAt"`
	SenderID     string    `json:"senderId"`
	IsSentByUser bool      `json:"isSentByUser"`
	TempID       string    `json:"tempId,omitempty"`
}

type ChatUpdatedPayload struct {
	ChatGroupID       string      `json:"chatGroupId"`
	PartnerID         string      `json:"partnerId"`
	PartnerName       string      `json:"partnerName"`
	PartnerProfilePic *string     `json:"partnerProfilePic"`
	LastMessage       LastMessage `json:"lastMessage"`
	UnreadCount       int         `json:"unreadCount"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type IncomingCallPayload struct {
	CallerID string `json:"callerId"`
}

type OfferRelayPayload struct {
	CallerID string          `json:"callerId"`
	Offer    json.RawMessage `json:"offer"`
}

type AnswerRelayPayload struct {
	AnswererID string          `json:"answererId"`
	Answer     json.RawMessage `json:"answer"`
}

type IceCandidateRelayPayload struct {
	SenderID  string          `json:"senderId"`
	Candidate json.RawMessage `json:"candidate"`
}

type CallEndedPayload struct {
	SenderID string `json:"senderId"`
}

type CallRejectedPayload struct {
	RejecterID string `json:"rejecterId"`
}

// MessagePayloadFrom renders a stored message for the wire.
func MessagePayloadFrom(msg Message, tempID string) MessagePayload {
	return MessagePayload{
		ID:          msg.ID,
		ChatGroupID: msg.ChatGroupID,
		SenderID:    msg.SenderID,
		Content:     msg.Content,
		Emoji:       msg.Emoji,
		CreatedAt:   msg.CreatedAt,
		TempID:      tempID,
	}
}
