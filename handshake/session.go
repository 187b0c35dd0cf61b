package handshake

const (
	// SessionKeyState is the session key holding the live state token for a
	// browser session, or absent when no handshake is in flight.
	SessionKeyState = "state"

	// SessionKeyWantsURL is the session key holding the URL originally
	// requested before the user was sent to the login page, if any.
	SessionKeyWantsURL = "wantsurl"

	// SessionKeyUsername is the session key holding the username of the
	// authenticated account, set only after a completed handshake.
	SessionKeyUsername = "username"
)

// Session is the per-browser-session key/value state the handshake runs
// against. A Session is created on the user's first contact with the host
// application and destroyed on logout or expiry; it must survive across the
// two request legs of the handshake. Implementations must be safe for
// concurrent use, since two tabs can share one browser session.
type Session interface {
	// Get returns the value stored under key and whether it was present.
	Get(key string) (string, bool)

	// Set stores value under key, replacing any existing value.
	Set(key, value string)

	// Unset removes key, if present.
	Unset(key string)

	// Take returns the value stored under key and removes it in the same
	// step. A second Take for the same key never observes the value again,
	// even when two requests race to consume it.
	Take(key string) (string, bool)
}
