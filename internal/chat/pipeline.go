package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"dm-service/internal/apperr"
	"dm-service/internal/models"
	"dm-service/internal/observability"
	"dm-service/internal/repositories"
	"dm-service/internal/ws"
)

const (
	msgRecipientRequired = "Recipient ID or email is required"
	msgContentEmpty      = "Message content cannot be empty"
	msgInvalidEmail      = "Recipient email is invalid"
	msgRecipientMissing  = "Recipient does not exist"
	msgSelfMessage       = "Cannot send message to yourself"
)

// rollbackTimeout bounds the cleanup after an aborted send.
const rollbackTimeout = 2 * time.Second

// Pipeline runs sendMessage and startChat for a connected user.
type Pipeline struct {
	hub      *ws.Hub
	users    repositories.UserRepository
	messages repositories.MessageRepository
	resolver *Resolver
	unread   *UnreadCounter
}

func NewPipeline(hub *ws.Hub, users repositories.UserRepository, groups repositories.ChatGroupRepository, messages repositories.MessageRepository) *Pipeline {
	return &Pipeline{
		hub:      hub,
		users:    users,
		messages: messages,
		resolver: NewResolver(groups),
		unread:   NewUnreadCounter(messages),
	}
}

// fanout carries what step 8 needs to render both sides of a delivery.
type fanout struct {
	msg             models.Message
	sender          models.User
	recipient       models.User
	senderUnread    int
	recipientUnread int
}

// SendMessage validates, persists and delivers one message. Steps run in
// order and any failure stops the pipeline before delivery.
func (p *Pipeline) SendMessage(ctx context.Context, sender ws.Client, payload models.SendMessagePayload) error {
	senderID := sender.UserID()

	payload, err := validateSendMessage(payload)
	if err != nil {
		return err
	}

	recipient, err := p.resolveRecipient(ctx, payload)
	if err != nil {
		return err
	}

	if recipient.ID == senderID {
		return apperr.New(apperr.SelfTarget, msgSelfMessage)
	}

	group, created, err := p.resolver.Resolve(ctx, senderID, recipient.ID)
	if err != nil {
		return err
	}

	msg, err := p.messages.Create(ctx, group.ID, senderID, payload.Content, "")
	if err != nil {
		p.rollback(ctx, nil, group, created)
		return apperr.Store("persist message", err)
	}

	out, err := p.prepareFanout(ctx, msg, senderID, recipient)
	if err != nil {
		p.rollback(ctx, &msg, group, created)
		return err
	}

	recipientOnline := p.deliver(sender, out, payload.TempID)
	observability.IncMessageSent(recipientOnline)
	log.Printf("message sent chat_group_id=%s message_id=%s sender_id=%s recipient_online=%t", group.ID, msg.ID, senderID, recipientOnline)
	return nil
}

// StartChat resolves the group with a recipient and tells the sender its id.
func (p *Pipeline) StartChat(ctx context.Context, sender ws.Client, payload models.StartChatPayload) error {
	payload.RecipientID = strings.TrimSpace(payload.RecipientID)
	if err := models.Validate(payload); err != nil {
		return apperr.Wrap(apperr.Validation, "Recipient ID is required", err)
	}

	recipient, err := p.userByID(ctx, payload.RecipientID)
	if err != nil {
		return err
	}
	if recipient.ID == sender.UserID() {
		return apperr.New(apperr.SelfTarget, "Cannot start a chat with yourself")
	}

	group, _, err := p.resolver.Resolve(ctx, sender.UserID(), recipient.ID)
	if err != nil {
		return err
	}

	sender.Send(models.NewEvent(models.EventChatStarted, models.ChatStartedPayload{
		With:        recipient.ID,
		ChatGroupID: group.ID,
	}))
	return nil
}

func validateSendMessage(payload models.SendMessagePayload) (models.SendMessagePayload, error) {
	payload.RecipientID = strings.TrimSpace(payload.RecipientID)
	payload.ReceiverEmail = strings.TrimSpace(payload.ReceiverEmail)
	payload.Content = strings.TrimSpace(payload.Content)
	payload.TempID = strings.TrimSpace(payload.TempID)

	err := models.Validate(payload)
	if err == nil {
		return payload, nil
	}
	field, _, _ := models.InvalidField(err)
	switch field {
	case "Content":
		return payload, apperr.Wrap(apperr.Validation, msgContentEmpty, err)
	case "ReceiverEmail":
		return payload, apperr.Wrap(apperr.Validation, msgInvalidEmail, err)
	default:
		return payload, apperr.Wrap(apperr.Validation, msgRecipientRequired, err)
	}
}

// resolveRecipient prefers the email when one is given.
func (p *Pipeline) resolveRecipient(ctx context.Context, payload models.SendMessagePayload) (models.User, error) {
	if payload.ReceiverEmail == "" {
		return p.userByID(ctx, payload.RecipientID)
	}
	user, err := p.users.GetByEmail(ctx, payload.ReceiverEmail)
	return userResult(user, err)
}

func (p *Pipeline) userByID(ctx context.Context, id string) (models.User, error) {
	user, err := p.users.GetByID(ctx, id)
	return userResult(user, err)
}

func userResult(user models.User, err error) (models.User, error) {
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, repositories.ErrUserNotFound):
		return models.User{}, apperr.Wrap(apperr.NotFound, msgRecipientMissing, err)
	default:
		return models.User{}, apperr.Store("resolve recipient", err)
	}
}

// prepareFanout counts unread messages once per fan-out target and loads the
// sender's profile next to it.
func (p *Pipeline) prepareFanout(ctx context.Context, msg models.Message, senderID string, recipient models.User) (fanout, error) {
	out := fanout{msg: msg, recipient: recipient}

	var err error
	if out.recipientUnread, err = p.unread.Count(ctx, msg.ChatGroupID, recipient.ID); err != nil {
		return fanout{}, err
	}
	if out.senderUnread, err = p.unread.Count(ctx, msg.ChatGroupID, senderID); err != nil {
		return fanout{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := p.users.GetByID(gctx, senderID)
		if err != nil {
			return apperr.Store("load sender", err)
		}
		out.sender = user
		return nil
	})
	g.Go(func() error {
		user, err := p.users.GetByID(gctx, recipient.ID)
		if err != nil {
			return apperr.Store("load recipient", err)
		}
		out.recipient = user
		return nil
	})
	if err := g.Wait(); err != nil {
		return fanout{}, err
	}
	return out, nil
}

// deliver sends the recipient's copy when they are online and always the
// sender's copy. Only the sender's copy echoes tempID.
func (p *Pipeline) deliver(sender ws.Client, out fanout, tempID string) bool {
	msg := out.msg

	online := p.hub.SendTo(out.recipient.ID,
		models.NewEvent(models.EventMessage, models.MessagePayloadFrom(msg, "")),
		models.NewEvent(models.EventChatUpdated, chatUpdated(msg, out.sender, out.recipient.ID, out.recipientUnread, "")),
	)

	sender.Send(models.NewEvent(models.EventMessage, models.MessagePayloadFrom(msg, tempID)))
	sender.Send(models.NewEvent(models.EventChatUpdated, chatUpdated(msg, out.recipient, msg.SenderID, out.senderUnread, tempID)))
	return online
}

// chatUpdated renders the chat list row as seen by viewerID, whose partner is partner.
func chatUpdated(msg models.Message, partner models.User, viewerID string, unread int, tempID string) models.ChatUpdatedPayload {
	return models.ChatUpdatedPayload{
		ChatGroupID:       msg.ChatGroupID,
		PartnerID:         partner.ID,
		PartnerName:       partner.Name,
		PartnerProfilePic: partner.ImageRef(),
		LastMessage: models.LastMessage{
			ID:           msg.ID,
			Content:      msg.Content,
			Emoji:        msg.Emoji,
			CreatedAt:    msg.CreatedAt,
			SenderID:     msg.SenderID,
			IsSentByUser: msg.SenderID == viewerID,
			TempID:       tempID,
		},
		UnreadCount: unread,
	}
}

// rollback undoes what an aborted send wrote: the message when it was
// persisted, then the group when this send created it.
func (p *Pipeline) rollback(ctx context.Context, msg *models.Message, group models.ChatGroup, created bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if msg != nil {
		if err := p.messages.DeleteOwned(ctx, msg.ID, msg.SenderID); err != nil {
			log.Printf("message rollback failed message_id=%s: %v", msg.ID, err)
			return
		}
	}
	if !created {
		return
	}
	if err := p.resolver.Discard(ctx, group); err != nil {
		log.Printf("chat group rollback failed chat_group_id=%s: %v", group.ID, err)
	}
}
