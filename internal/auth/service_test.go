package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// memUserStore is a minimal in-process UserStore for service tests.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*User)}
}

func (s *memUserStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Identity]; ok {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = "user-" + u.Identity
	}
	cp := *u
	s.users[u.Identity] = &cp
	return nil
}

func (s *memUserStore) FindByIdentity(ctx context.Context, identity string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[identity]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return ErrNotFound
}

func newTestService(t *testing.T) (*Service, *memUserStore) {
	t.Helper()
	tokens, err := NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	store := newMemUserStore()
	return NewService(store, tokens), store
}

func TestRegisterIssuesToken(t *testing.T) {
	svc, store := newTestService(t)

	session, err := svc.Register(context.Background(), "johndoe", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("expected token")
	}
	if session.User.Identity != "johndoe" {
		t.Fatalf("unexpected identity: %s", session.User.Identity)
	}

	stored, err := store.FindByIdentity(context.Background(), "johndoe")
	if err != nil {
		t.Fatalf("FindByIdentity: %v", err)
	}
	if stored.PasswordHash == "password123" {
		t.Fatalf("password must not be stored in the clear")
	}
	if !VerifyPassword("password123", stored.PasswordHash) {
		t.Fatalf("stored hash must verify the original secret")
	}
}

func TestRegisterRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), "ab", "password123"); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "johndoe", "short"); !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("expected ErrInvalidSecret, got %v", err)
	}
}

func TestRegisterDuplicateIdentity(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), "johndoe", "password123"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "johndoe", "otherpassword"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestLoginFlow(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), "johndoe", "password123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	session, err := svc.Login(context.Background(), "johndoe", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("expected token")
	}

	if _, err := svc.Login(context.Background(), "johndoe", "wrongpassword"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong secret, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "ghost", "password123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown identity, got %v", err)
	}
}

func TestRefreshReissuesForSameSubject(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.Register(context.Background(), "johndoe", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.User.Identity != "johndoe" {
		t.Fatalf("unexpected identity: %s", refreshed.User.Identity)
	}

	if _, err := svc.Refresh(context.Background(), "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.Register(context.Background(), "johndoe", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, err := svc.Authenticate(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Identity != "johndoe" {
		t.Fatalf("unexpected identity: %s", user.Identity)
	}

	if _, err := svc.Authenticate(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
