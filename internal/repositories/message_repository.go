package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"dm-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, chat_group_id, sender_id, content, emoji, created_at, is_read`

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, chatGroupID, senderID, content, emoji string) (models.Message, error)
	CountUnread(ctx context.Context, chatGroupID, excludeSenderID string) (int, error)
	Latest(ctx context.Context, chatGroupID string) (models.Message, error)
	ListPage(ctx context.Context, chatGroupID string, limit int, cursor string) ([]models.Message, error)
	DeleteOwned(ctx context.Context, messageID, senderID string) error
	MarkRead(ctx context.Context, chatGroupID, readerID string) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores an unread message; the database assigns id and created_at.
func (r *MessageRepo) Create(ctx context.Context, chatGroupID, senderID, content, emoji string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (chat_group_id, sender_id, content, emoji, is_read) VALUES ($1, $2, $3, $4, FALSE) RETURNING `+messageColumns, chatGroupID, senderID, content, emoji).
		StructScan(&msg)
	return msg, err
}

// CountUnread counts unread messages in the group not authored by excludeSenderID.
func (r *MessageRepo) CountUnread(ctx context.Context, chatGroupID, excludeSenderID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE chat_group_id=$1 AND sender_id<>$2 AND is_read = FALSE`, chatGroupID, excludeSenderID)
	return count, err
}

// Latest returns the newest message of the group.
func (r *MessageRepo) Latest(ctx context.Context, chatGroupID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE chat_group_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, chatGroupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListPage returns up to limit messages older than cursor (or the newest ones), oldest first.
func (r *MessageRepo) ListPage(ctx context.Context, chatGroupID string, limit int, cursor string) ([]models.Message, error) {
	msgs := []models.Message{}
	var err error
	if cursor == "" {
		err = r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
            WHERE chat_group_id=$1
            ORDER BY created_at DESC, id DESC
            LIMIT $2`, chatGroupID, limit)
	} else {
		err = r.db.SelectContext(ctx, &msgs, `SELECT m.id, m.chat_group_id, m.sender_id, m.content, m.emoji, m.created_at, m.is_read
            FROM messages m, messages c
            WHERE c.id=$2 AND m.chat_group_id=$1
            AND (m.created_at, m.id) < (c.created_at, c.id)
            ORDER BY m.created_at DESC, m.id DESC
            LIMIT $3`, chatGroupID, cursor, limit)
	}
	if err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

// DeleteOwned deletes a message only when senderID authored it.
func (r *MessageRepo) DeleteOwned(ctx context.Context, messageID, senderID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1 AND sender_id=$2`, messageID, senderID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkRead flags every message the reader received in the group as read.
func (r *MessageRepo) MarkRead(ctx context.Context, chatGroupID, readerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE WHERE chat_group_id=$1 AND sender_id<>$2 AND is_read = FALSE`, chatGroupID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func reverse(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
