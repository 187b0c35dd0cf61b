// login provides the http handler driving a full external-login flow over
// one endpoint. A request with no provider parameters renders the login
// affordance, minting (or reusing) the session's state token. A request
// carrying the provider's callback parameters completes the handshake:
// the state token is validated and consumed before anything else, the
// authorization code is exchanged, the identity is resolved to a local
// account, and the session becomes authenticated — or the request is
// rejected with no partial state left behind.
package login
