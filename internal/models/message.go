package models

import "time"

// Message is a single text message inside a chat group.
type Message struct {
	ID          string    `db:"id" json:"id"`
	ChatGroupID string    `db:"chat_group_id" json:"chatGroupId"`
	SenderID    string    `db:"sender_id" json:"senderId"`
	Content     string    `db:"content" json:"content"`
	Emoji       string    `db:"emoji" json:"emoji"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	IsRead      bool      `db:"is_read" json:"isRead"`
}

// HistoryMessage is a message rendered for one reader of the chat history.
type HistoryMessage struct {
	Message
	IsSentByUser bool `json:"isSentByUser"`
}
