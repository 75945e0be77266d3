package models

import (
	"sort"
	"time"
)

// ChatGroup is the conversation between exactly two users.
// UserA and UserB are stored in canonical order (UserA < UserB).
type ChatGroup struct {
	ID        string    `db:"id" json:"id"`
	UserA     string    `db:"user_a" json:"user_a"`
	UserB     string    `db:"user_b" json:"user_b"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CanonicalPair orders two user ids so that either direction maps to the same group.
// The order is bytewise, matching the COLLATE "C" pair columns.
func CanonicalPair(a, b string) (string, string) {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0], ids[1]
}

// HasParticipant reports whether userID is one side of the group.
func (g ChatGroup) HasParticipant(userID string) bool {
	return g.UserA == userID || g.UserB == userID
}

// PartnerOf returns the other participant.
func (g ChatGroup) PartnerOf(userID string) string {
	if g.UserA == userID {
		return g.UserB
	}
	return g.UserA
}

// ChatSummary is one row of a user's chat list.
type ChatSummary struct {
	ChatGroupID       string       `json:"chatGroupId"`
	PartnerID         string       `json:"partnerId"`
	PartnerName       string       `json:"partnerName"`
	PartnerProfilePic *string      `json:"partnerProfilePic"`
	LastMessage       *LastMessage `json:"lastMessage"`
	UnreadCount       int          `json:"unreadCount"`
}

// Partner is the counterpart shown when a single chat is opened.
type Partner struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	ProfilePic *string `json:"profilePic"`
}
