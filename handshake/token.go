package handshake

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// TokenEntropyBytes is the number of random bytes backing a state token.
// Encoded without padding this yields a 43 character URL-safe string.
const TokenEntropyBytes = 32

// IssueToken returns the session's live state token, minting one when none
// exists. It is idempotent: rendering the login page twice before the
// redirect (a page refresh, a second tab) returns the same token both times.
// The token is opaque, carries no structure tying it to the account being
// logged into, and is read exclusively from a cryptographically secure
// random source.
func IssueToken(s Session) (string, error) {
	const op = "handshake.IssueToken"
	if s == nil {
		return "", fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}
	if existing, ok := s.Get(SessionKeyState); ok && existing != "" {
		return existing, nil
	}
	data := make([]byte, TokenEntropyBytes)
	if _, err := rand.Read(data); err != nil {
		return "", fmt.Errorf("%s: unable to read random source: %w", op, ErrTokenGeneration)
	}
	token := base64.RawURLEncoding.EncodeToString(data)
	s.Set(SessionKeyState, token)
	return token, nil
}

// ValidateToken reports whether received matches the session's live state
// token. The live token is consumed before the comparison result is
// returned, whether or not it matched: a token is valid for exactly one
// validation attempt, so a failed guess burns the token and a replayed
// callback observes it already cleared. The comparison is constant time.
//
// Callers must treat a false return as terminal for the request and must
// not process any further callback parameters after it.
func ValidateToken(s Session, received string) bool {
	if s == nil {
		return false
	}
	current, ok := s.Take(SessionKeyState)
	if !ok || current == "" || received == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(received)) == 1
}
