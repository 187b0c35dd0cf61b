// handshake implements the core of a redirect-based external login: a
// per-session, single-use state token protecting the handshake against
// cross-site request forgery and replay, and a provider client that
// exchanges the returned authorization code for identity information.
//
// The protocol has two legs. Before redirecting the user to the identity
// provider, IssueToken mints (or idempotently reuses) an opaque token bound
// to the browser session. When the provider redirects back with an
// authorization code and the echoed state, ValidateToken checks the token
// exactly once, consuming it whether or not it matched. Only after a
// successful validation is the code exchanged via an IdentityProvider.
//
// See the login package for the http handler that drives the full
// login-completion flow against these primitives.
package handshake
