package share

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet avoids characters that read ambiguously when a link is
// passed along verbally or retyped (no I, O, 0, 1).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// codeLength is the share code length; 32^8 keeps blind guessing unviable
// while the code stays short enough to dictate.
const codeLength = 8

// generateCode produces a random share code from the unambiguous alphabet.
func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
