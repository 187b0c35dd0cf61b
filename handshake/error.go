package handshake

import (
	"errors"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNilParameter      = errors.New("nil parameter")
	ErrInvalidCACert     = errors.New("invalid CA certificate")
	ErrTokenGeneration   = errors.New("state token generation failed")
	ErrInvalidState      = errors.New("state token is invalid")
	ErrMissingParameters = errors.New("callback parameters are missing")
	ErrExchangeFailed    = errors.New("authorization code exchange failed")
	ErrMissingIdentifier = errors.New("identity has no resolvable identifier")
	ErrProviderError     = errors.New("identity provider returned an error")
)
