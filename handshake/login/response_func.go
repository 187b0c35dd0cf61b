package login

import (
	"errors"
	"net/http"

	"github.com/openlms/extauth/directory"
	"github.com/openlms/extauth/handshake"
)

// StateRejectionMessage is the fixed body sent with a 403 when the state
// parameter does not match the token issued for this login attempt. It is
// deliberately constant: the response must not reveal whether a token
// existed, expired, or merely mismatched.
const StateRejectionMessage = "The state parameter didn't match what was issued for this login attempt."

// SuccessResponseFunc is used by the handler to respond once a login has
// completed: the account was resolved and the session is authenticated.
// redirectTo is the URL originally requested before login when one was
// recorded for the session, otherwise the configured home URL.
type SuccessResponseFunc func(acct *directory.Account, redirectTo string, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by the handler to respond when the handshake is
// rejected. reason wraps one of handshake.ErrInvalidState,
// handshake.ErrMissingParameters, handshake.ErrExchangeFailed,
// handshake.ErrProviderError or directory.ErrNotFound; every rejection is
// terminal for the request and the user must restart the handshake from the
// login page, which mints a fresh token.
type ErrorResponseFunc func(reason error, w http.ResponseWriter, req *http.Request)

// DefaultSuccess redirects the browser to redirectTo.
func DefaultSuccess(acct *directory.Account, redirectTo string, w http.ResponseWriter, req *http.Request) {
	http.Redirect(w, req, redirectTo, http.StatusSeeOther)
}

// DefaultError writes a plain-text response for the rejection:
// 403 with the fixed StateRejectionMessage for a state mismatch, 400 for a
// malformed callback, 502 when the provider exchange failed, and 403 when
// no local account matches the verified identity.
func DefaultError(reason error, w http.ResponseWriter, req *http.Request) {
	switch {
	case errors.Is(reason, handshake.ErrInvalidState):
		http.Error(w, StateRejectionMessage, http.StatusForbidden)
	case errors.Is(reason, handshake.ErrMissingParameters):
		http.Error(w, "login callback is missing its code or state parameter", http.StatusBadRequest)
	case errors.Is(reason, handshake.ErrProviderError):
		http.Error(w, "the identity provider reported an error; please retry the login", http.StatusBadGateway)
	case errors.Is(reason, handshake.ErrExchangeFailed):
		http.Error(w, "login with the identity provider failed; please retry the login", http.StatusBadGateway)
	case errors.Is(reason, directory.ErrNotFound):
		http.Error(w, "no local account matches the verified identity", http.StatusForbidden)
	default:
		http.Error(w, "login failed", http.StatusInternalServerError)
	}
}
