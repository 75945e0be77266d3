package chat

import (
	"context"

	"dm-service/internal/apperr"
	"dm-service/internal/repositories"
)

// UnreadCounter derives unread counts from the store on every call.
type UnreadCounter struct {
	messages repositories.MessageRepository
}

func NewUnreadCounter(messages repositories.MessageRepository) *UnreadCounter {
	return &UnreadCounter{messages: messages}
}

// Count returns how many messages of the group are unread and were not
// written by excludeSenderID.
func (u *UnreadCounter) Count(ctx context.Context, chatGroupID, excludeSenderID string) (int, error) {
	count, err := u.messages.CountUnread(ctx, chatGroupID, excludeSenderID)
	if err != nil {
		return 0, apperr.Store("count unread", err)
	}
	return count, nil
}
