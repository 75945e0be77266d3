package models

import (
	"database/sql"
	"time"
)

// User is the subset of the account record the messaging core reads.
type User struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Email     string         `db:"email" json:"email"`
	Image     sql.NullString `db:"image" json:"-"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// ImageRef returns the avatar reference or nil when none is set.
func (u User) ImageRef() *string {
	if !u.Image.Valid {
		return nil
	}
	img := u.Image.String
	return &img
}
