package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "mailbridge"

	// TokenTTL is the fixed lifetime of an access token. Tokens are
	// stateless; expiry is the only server-side lifecycle event.
	TokenTTL = 24 * time.Hour
)

// Claims represents the JWT claims carried by a mailbridge access token.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256-signed access tokens keyed by a
// single symmetric secret provided at construction.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithClock overrides the time source (useful for expiry tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(t *TokenService) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTokenService constructs a TokenService. The secret must be non-empty.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret is not configured")
	}
	ts := &TokenService{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(ts)
	}
	return ts, nil
}

// Issue signs a token asserting the given subject, valid for TokenTTL.
func (t *TokenService) Issue(subject string) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, errors.New("auth: subject is required")
	}
	now := t.now().UTC()
	expiresAt := now.Add(TokenTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify validates structure, signature, and expiry. Every failure mode
// (malformed token, wrong algorithm, bad signature, expired) collapses to
// ErrInvalidToken so callers cannot distinguish why verification failed.
func (t *TokenService) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != issuer || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractFromHeader pulls the bearer token out of an Authorization header.
// The header must be exactly two space-separated fields with the first
// literally "Bearer", with no trimming and no case folding. Surrounding whitespace
// is rejected on purpose; this is an exact-match contract.
func ExtractFromHeader(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}
