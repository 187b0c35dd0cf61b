// extauth provides the pieces a host application needs to delegate login
// to an external identity provider: a CSRF/replay-proof state-token
// protocol, a login-completion http handler, per-browser-session state
// stores, and user-directory collaborators.
//
// See README.md
package extauth
