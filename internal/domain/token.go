// Package domain token.go contains functions to generate, parse, and validate
// file tokens.
package domain

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenLen is the length of a token in characters.
const TokenLen = 12

// Token is the canonical public identifier for a stored file. It is a 48-bit
// random value encoded as 12 lowercase hex characters, and doubles as the
// blob-store key. Entropy is a tunable policy knob; collisions are handled by
// the bounded regeneration loop in the lifecycle service.
type Token string

// NewToken generates a new cryptographically random Token encoded as 12
// lowercase hexadecimal characters.
func NewToken() (Token, error) {
	var b [TokenLen / 2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	dst := make([]byte, TokenLen)
	hex.Encode(dst, b[:]) // hex.Encode always produces lowercase
	return Token(dst), nil
}

// ParseToken validates s and returns it as a Token. It enforces:
// - length == 12
// - only lowercase [0-9a-f]
// Returns ErrInvalidToken on failure.
func ParseToken(s string) (Token, error) {
	if !isValidToken(s) {
		return "", ErrInvalidToken
	}
	return Token(s), nil
}

// String returns the string form of the Token.
func (t Token) String() string { return string(t) }

// Valid reports whether the Token satisfies the same rules as ParseToken.
func (t Token) Valid() bool { return isValidToken(string(t)) }

// isValidToken performs validation without allocating errors.
func isValidToken(s string) bool {
	if len(s) != TokenLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
