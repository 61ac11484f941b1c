package auth

// Syntactic bounds for credentials, enforced before any hashing or storage.
const (
	identityMinLen = 3
	identityMaxLen = 50
	secretMinLen   = 8
	secretMaxLen   = 128
)

// ValidateIdentity accepts lowercase letters, digits, and hyphens only,
// between 3 and 50 characters. No unicode, no underscores, case-sensitive.
func ValidateIdentity(s string) error {
	if len(s) < identityMinLen || len(s) > identityMaxLen {
		return ErrInvalidIdentity
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			continue
		}
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '-' {
			continue
		}
		return ErrInvalidIdentity
	}
	return nil
}

// ValidateSecret bounds length only; any byte is allowed, including
// whitespace and control characters.
func ValidateSecret(s string) error {
	if len(s) < secretMinLen || len(s) > secretMaxLen {
		return ErrInvalidSecret
	}
	return nil
}
