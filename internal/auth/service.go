package auth

import (
	"context"
	"errors"
	"time"
)

// Service composes validation, password hashing, and token issuance over a
// narrow user store. It is the single entry point the HTTP layer talks to.
type Service struct {
	users  UserStore
	tokens *TokenService
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the auth service.
func NewService(users UserStore, tokens *TokenService, opts ...ServiceOption) *Service {
	svc := &Service{users: users, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Register validates credentials, stores the identity with a fresh password
// hash, and issues a token. A taken identity surfaces as ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, identity, secret string) (Session, error) {
	if err := ValidateIdentity(identity); err != nil {
		return Session{}, err
	}
	if err := ValidateSecret(secret); err != nil {
		return Session{}, err
	}
	hash, err := HashPassword(secret)
	if err != nil {
		return Session{}, err
	}
	user := &User{Identity: identity, PasswordHash: hash, CreatedAt: s.now().UTC()}
	if err := s.users.Create(ctx, user); err != nil {
		return Session{}, err
	}
	return s.startSession(user)
}

// Login verifies credentials and issues a token. Unknown identity and wrong
// secret are indistinguishable to the caller: both return ErrUnauthorized.
func (s *Service) Login(ctx context.Context, identity, secret string) (Session, error) {
	if identity == "" || secret == "" {
		return Session{}, ErrUnauthorized
	}
	user, err := s.users.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	if !VerifyPassword(secret, user.PasswordHash) {
		return Session{}, ErrUnauthorized
	}
	return s.startSession(user)
}

// Refresh re-issues a token for the subject of a still-valid token. Tokens
// are stateless, so there is nothing to revoke; the old token simply ages out.
func (s *Service) Refresh(ctx context.Context, token string) (Session, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	user, err := s.users.FindByIdentity(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidToken
		}
		return Session{}, err
	}
	return s.startSession(user)
}

// Authenticate resolves a bearer token to the account it asserts.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindByIdentity(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) startSession(user *User) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.Identity)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
