// sessionstore provides the per-browser-session key/value state the
// handshake runs against: a concurrently safe in-memory store with TTL
// eviction, a Redis-backed store for multi-instance deployments, and http
// middleware that binds a browser to its session with a cookie.
package sessionstore

import (
	"context"
	"errors"

	"github.com/openlms/extauth/handshake"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
)

// Store hands out the session for a browser-session id, creating it on
// first contact. The id comes from the browser cookie set by Middleware.
// Implementations must be safe for concurrent use.
type Store interface {
	// Session returns the session for id. The returned session is valid
	// for the life of the request that fetched it.
	Session(ctx context.Context, id string) (handshake.Session, error)

	// Destroy removes the session and all its state, for logout or expiry.
	Destroy(ctx context.Context, id string) error
}
