package domain

import "time"

// Account is a local user of the web surface.
type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session maps an opaque bearer token to an account.
type Session struct {
	Token     string
	AccountID int64
	CreatedAt time.Time
}
