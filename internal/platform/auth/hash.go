// Package auth provides password and PIN hashing, database-backed sessions
// carried in a signed cookie, and the echo middleware that resolves the
// authenticated user for owner-scoped routes.
package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// Hash derives a bcrypt hash from a password or share PIN. The plaintext is
// never stored or logged.
func Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored bcrypt hash.
func Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
