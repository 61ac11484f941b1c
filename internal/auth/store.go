package auth

import "context"

// UserStore describes persistence operations required by the auth service.
// Create must return ErrAlreadyExists when the identity is taken, so the
// caller can distinguish a duplicate from generic storage failure.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByIdentity(ctx context.Context, identity string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
