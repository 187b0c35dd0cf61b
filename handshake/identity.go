package handshake

import "fmt"

// Identity is the information a provider returns about the authenticated
// user after a successful code exchange. The handshake only needs a stable
// identifier to resolve a local account; the remaining fields are carried
// for the host application's benefit.
type Identity struct {
	// ID is the provider's stable external identifier for the user.
	ID string `json:"id"`

	// Username is the provider-reported username used to resolve the local
	// account. When empty, ID is used instead.
	Username string `json:"username"`

	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Resolvable returns the field used to look up the local account:
// Username when present, otherwise ID.
func (i *Identity) Resolvable() (string, error) {
	const op = "handshake.Identity.Resolvable"
	if i == nil {
		return "", fmt.Errorf("%s: identity is nil: %w", op, ErrNilParameter)
	}
	switch {
	case i.Username != "":
		return i.Username, nil
	case i.ID != "":
		return i.ID, nil
	default:
		return "", fmt.Errorf("%s: no username or id in identity response: %w", op, ErrMissingIdentifier)
	}
}
