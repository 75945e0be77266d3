package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"dm-service/internal/apperr"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
	"dm-service/internal/telemetry"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ChatHandler serves the chat history read path and the user-driven deletes.
type ChatHandler struct {
	groups   repositories.ChatGroupRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
	audit    *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler. audit may be nil.
func NewChatHandler(groups repositories.ChatGroupRepository, messages repositories.MessageRepository, users repositories.UserRepository, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		groups:   groups,
		messages: messages,
		users:    users,
		audit:    audit,
	}
}

// ListChats returns the caller's chats, most recent activity first.
func (h *ChatHandler) ListChats(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString("userID")

	groups, err := h.groups.ListForUser(ctx, userID)
	if err != nil {
		writeError(c, apperr.Store("list chat groups", err))
		return
	}

	partnerIDs := lo.Map(groups, func(g models.ChatGroup, _ int) string { return g.PartnerOf(userID) })
	partners, err := h.users.GetByIDs(ctx, partnerIDs)
	if err != nil {
		writeError(c, apperr.Store("load partners", err))
		return
	}
	partnerByID := lo.KeyBy(partners, func(u models.User) string { return u.ID })

	summaries := make([]models.ChatSummary, 0, len(groups))
	activity := make(map[string]int64, len(groups))
	for _, group := range groups {
		summary, lastAt, err := h.summarize(ctx, group, userID, partnerByID[group.PartnerOf(userID)])
		if err != nil {
			writeError(c, err)
			return
		}
		activity[group.ID] = lastAt
		summaries = append(summaries, summary)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return activity[summaries[i].ChatGroupID] > activity[summaries[j].ChatGroupID]
	})

	c.JSON(http.StatusOK, gin.H{"chats": summaries})
}

// summarize builds one chat list row and returns its last activity in unix nanos.
func (h *ChatHandler) summarize(ctx context.Context, group models.ChatGroup, userID string, partner models.User) (models.ChatSummary, int64, error) {
	summary := models.ChatSummary{
		ChatGroupID:       group.ID,
		PartnerID:         group.PartnerOf(userID),
		PartnerName:       partner.Name,
		PartnerProfilePic: partner.ImageRef(),
	}
	lastAt := group.CreatedAt.UnixNano()

	latest, err := h.messages.Latest(ctx, group.ID)
	switch {
	case err == nil:
		summary.LastMessage = &models.LastMessage{
			ID:           latest.ID,
			Content:      latest.Content,
			Emoji:        latest.Emoji,
			CreatedAt:    latest.CreatedAt,
			SenderID:     latest.SenderID,
			IsSentByUser: latest.SenderID == userID,
		}
		lastAt = latest.CreatedAt.UnixNano()
	case !errors.Is(err, repositories.ErrMessageNotFound):
		return models.ChatSummary{}, 0, apperr.Store("load last message", err)
	}

	summary.UnreadCount, err = h.messages.CountUnread(ctx, group.ID, userID)
	if err != nil {
		return models.ChatSummary{}, 0, apperr.Store("count unread", err)
	}
	return summary, lastAt, nil
}

// GetChat returns one chat with its partner and a page of messages, oldest first.
// cursor is the id of the oldest message the client already has.
func (h *ChatHandler) GetChat(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString("userID")

	limit, err := pageSize(c.Query("limit"))
	if err != nil {
		writeError(c, err)
		return
	}

	group, err := h.groups.GetForUser(ctx, c.Param("chat_group_id"), userID)
	if err != nil {
		writeError(c, groupError(err))
		return
	}

	partner, err := h.users.GetByID(ctx, group.PartnerOf(userID))
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		writeError(c, apperr.Store("load partner", err))
		return
	}

	page, err := h.messages.ListPage(ctx, group.ID, limit, c.Query("cursor"))
	if err != nil {
		writeError(c, apperr.Store("list messages", err))
		return
	}

	history := lo.Map(page, func(m models.Message, _ int) models.HistoryMessage {
		return models.HistoryMessage{Message: m, IsSentByUser: m.SenderID == userID}
	})
	var nextCursor *string
	if len(page) == limit {
		nextCursor = &page[0].ID
	}

	c.JSON(http.StatusOK, gin.H{
		"chatGroupId": group.ID,
		"partner": models.Partner{
			ID:         group.PartnerOf(userID),
			Name:       partner.Name,
			ProfilePic: partner.ImageRef(),
		},
		"messages":   history,
		"nextCursor": nextCursor,
	})
}

// DeleteChat removes a chat group and its messages for both participants.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	userID := c.GetString("userID")
	chatGroupID := c.Param("chat_group_id")

	if err := h.groups.DeleteForUser(c.Request.Context(), chatGroupID, userID); err != nil {
		writeError(c, groupError(err))
		return
	}

	h.emitAudit(c, "chat.delete", chatGroupID, "chat group deleted")
	c.Status(http.StatusNoContent)
}

// DeleteMessage removes a message the caller sent.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID := c.GetString("userID")
	messageID := c.Param("message_id")

	err := h.messages.DeleteOwned(c.Request.Context(), messageID, userID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		writeError(c, apperr.Wrap(apperr.NotFound, "message not found", err))
		return
	}
	if err != nil {
		writeError(c, apperr.Store("delete message", err))
		return
	}

	h.emitAudit(c, "message.delete", messageID, "message deleted")
	c.Status(http.StatusNoContent)
}

// MarkRead flags the partner's messages in the chat as read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString("userID")

	group, err := h.groups.GetForUser(ctx, c.Param("chat_group_id"), userID)
	if err != nil {
		writeError(c, groupError(err))
		return
	}

	updated, err := h.messages.MarkRead(ctx, group.ID, userID)
	if err != nil {
		writeError(c, apperr.Store("mark read", err))
		return
	}

	if updated > 0 {
		h.emitAudit(c, "chat.read", group.ID, "messages marked read")
	}
	c.JSON(http.StatusOK, gin.H{"chatGroupId": group.ID, "updated": updated})
}

func (h *ChatHandler) emitAudit(c *gin.Context, action, target, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), telemetry.AuditRecord{
		Level:     telemetry.LevelInfo,
		Action:    action,
		Target:    target,
		Text:      text,
		RequestID: requestIDFromContext(c),
		UserID:    userIDFromContext(c),
	})
}

func pageSize(raw string) (int, error) {
	if raw == "" {
		return defaultPageSize, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperr.New(apperr.Validation, "invalid limit")
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, nil
}

func groupError(err error) error {
	if errors.Is(err, repositories.ErrChatGroupNotFound) {
		return apperr.Wrap(apperr.NotFound, "chat not found", err)
	}
	return apperr.Store("load chat group", err)
}
