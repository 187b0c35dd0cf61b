package directory

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("account not found")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
)

// PrefPasswordUpdatedAt is the preference name recording when the account's
// password was last updated, as unix seconds. It feeds the ExpiryPolicy.
const PrefPasswordUpdatedAt = "password_updated_at"

// Account is a local account as the user directory exposes it to the login
// flow. Its lifecycle (creation, password state) is owned by the directory,
// not by the handshake.
type Account struct {
	Username  string
	Email     string
	Confirmed bool
	CreatedAt time.Time
	LastLogin time.Time
}

// ConfirmResult reports the outcome of confirming an account.
type ConfirmResult int

const (
	// ConfirmOK means the account was confirmed by this call.
	ConfirmOK ConfirmResult = iota

	// ConfirmAlready means the account was already confirmed.
	ConfirmAlready
)

// Directory is the user-directory collaborator: local account lookup and
// the operations the login flow and its surrounding glue need. Lookups for
// unknown usernames return ErrNotFound; accounts are never created
// implicitly by any Directory operation.
type Directory interface {
	// FindByUsername resolves a local account, or ErrNotFound.
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// CompleteLogin records a successful, protocol-verified login for the
	// account. It is only called after the handshake validated the state
	// token and the provider verified the user's identity.
	CompleteLogin(ctx context.Context, username string) error

	// Confirm marks the account as confirmed, reporting whether it already
	// was.
	Confirm(ctx context.Context, username string) (ConfirmResult, error)

	// SetPreference stores a per-account preference value.
	SetPreference(ctx context.Context, username, name, value string) error

	// Preference returns a per-account preference value and whether it was
	// set. An unknown account is an error; an unset preference is not.
	Preference(ctx context.Context, username, name string) (string, bool, error)
}
