package auth

import "errors"

var (
	ErrNotFound        = errors.New("auth: not found")
	ErrAlreadyExists   = errors.New("auth: identity already registered")
	ErrInvalidIdentity = errors.New("auth: invalid identity")
	ErrInvalidSecret   = errors.New("auth: invalid secret")
	ErrUnauthorized    = errors.New("auth: unauthorized")
	ErrInvalidToken    = errors.New("auth: invalid token")
)
