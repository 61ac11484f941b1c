package auth

import "time"

// User represents a mailbox account addressed by its identity string.
type User struct {
	ID           string
	Identity     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is what the service hands back after a successful
// register/login/refresh: the account plus a fresh access token.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}
