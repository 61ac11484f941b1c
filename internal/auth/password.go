package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// Key-derivation parameters. Changing any of these invalidates stored hashes.
const (
	kdfIterations = 100_000
	saltLen       = 16
	keyLen        = 32
)

// HashPassword derives a salted PBKDF2-SHA256 key from the password and
// returns base64(salt || key). Each call uses a fresh random salt, so two
// hashes of the same password never compare equal as strings.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, kdfIterations, keyLen, sha256.New)
	return base64.StdEncoding.EncodeToString(append(salt, key...)), nil
}

// VerifyPassword re-derives the key with the salt embedded in the stored
// hash and compares in constant time. Malformed or wrong-length input
// returns false, never an error.
func VerifyPassword(password, encoded string) bool {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	if len(raw) != saltLen+keyLen {
		return false
	}
	salt, stored := raw[:saltLen], raw[saltLen:]
	derived := pbkdf2.Key([]byte(password), salt, kdfIterations, keyLen, sha256.New)
	return subtle.ConstantTimeCompare(derived, stored) == 1
}
