package handshake

import (
	"bytes"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestProvider is a local server that stands in for an identity provider,
// which makes writing handshake tests much easier. It serves a token
// endpoint and a userinfo endpoint over TLS, with knobs for the expected
// authorization code, the identity to reply with, and injected failures.
// It also counts exchange attempts, so tests can assert that the code
// exchange was never invoked after a rejected state token.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	mu               sync.Mutex
	clientID         string
	clientSecret     string
	expectedAuthCode string
	accessToken      string
	replyIdentity    *Identity
	tokenErrorCode   string
	disableUserInfo  bool
	exchangeCount    int

	t *testing.T
}

// StartTestProvider creates and starts a disposable TestProvider. The
// server is stopped automatically when the test ends.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		t:           t,
		accessToken: "test-access-token",
		replyIdentity: &Identity{
			ID:       "ext-0123456789",
			Username: "alice",
			Email:    "alice@example.com",
		},
	}
	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(ioutil.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()
	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the base URL of the running provider.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// AuthURL returns the provider's authorization endpoint.
func (p *TestProvider) AuthURL() string { return p.httpServer.URL + "/authorize" }

// TokenURL returns the provider's token endpoint.
func (p *TestProvider) TokenURL() string { return p.httpServer.URL + "/token" }

// UserInfoURL returns the provider's userinfo endpoint.
func (p *TestProvider) UserInfoURL() string { return p.httpServer.URL + "/userinfo" }

// CACert returns the PEM-encoded CA cert for the provider's TLS listener,
// suitable for a Config's ProviderCA.
func (p *TestProvider) CACert() string { return p.caCert }

// SetClientCreds configures the client credentials the token endpoint will
// accept.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the only authorization code the token
// endpoint will accept.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetReplyIdentity configures the identity returned by the userinfo
// endpoint.
func (p *TestProvider) SetReplyIdentity(i Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyIdentity = &i
}

// SetTokenError makes the token endpoint reply with the given OAuth error
// code for every exchange. An empty code restores normal behavior.
func (p *TestProvider) SetTokenError(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenErrorCode = code
}

// SetDisableUserInfo makes the userinfo endpoint reply with a server error.
func (p *TestProvider) SetDisableUserInfo(disable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = disable
}

// ExchangeCount returns how many times the token endpoint has been called.
func (p *TestProvider) ExchangeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchangeCount
}

// ServeHTTP implements the test provider's http endpoints.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.t.Helper()

	switch req.URL.Path {
	case "/token":
		p.exchangeCount++
		if req.Method != http.MethodPost {
			p.writeTokenError(w, http.StatusMethodNotAllowed, "invalid_request")
			return
		}
		if p.tokenErrorCode != "" {
			p.writeTokenError(w, http.StatusUnauthorized, p.tokenErrorCode)
			return
		}
		if !p.validClient(req) {
			p.writeTokenError(w, http.StatusUnauthorized, "invalid_client")
			return
		}
		if err := req.ParseForm(); err != nil {
			p.writeTokenError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if req.FormValue("grant_type") != "authorization_code" {
			p.writeTokenError(w, http.StatusBadRequest, "unsupported_grant_type")
			return
		}
		if p.expectedAuthCode == "" || req.FormValue("code") != p.expectedAuthCode {
			p.writeTokenError(w, http.StatusUnauthorized, "invalid_grant")
			return
		}
		p.writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": p.accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	case "/userinfo":
		if p.disableUserInfo {
			http.Error(w, "userinfo disabled", http.StatusInternalServerError)
			return
		}
		if req.Header.Get("Authorization") != "Bearer "+p.accessToken {
			p.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error": "invalid_token",
			})
			return
		}
		p.writeJSON(w, http.StatusOK, map[string]interface{}{
			"info": p.replyIdentity,
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// validClient accepts credentials via basic auth or form values, matching
// the two styles x/oauth2 may send.
func (p *TestProvider) validClient(req *http.Request) bool {
	if id, secret, ok := req.BasicAuth(); ok {
		return id == p.clientID && secret == p.clientSecret
	}
	if err := req.ParseForm(); err != nil {
		return false
	}
	return req.FormValue("client_id") == p.clientID && req.FormValue("client_secret") == p.clientSecret
}

func (p *TestProvider) writeTokenError(w http.ResponseWriter, statusCode int, errorCode string) {
	p.writeJSON(w, statusCode, map[string]interface{}{
		"error":             errorCode,
		"error_description": fmt.Sprintf("test provider: %s", errorCode),
	})
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	p.t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	require.NoError(p.t, json.NewEncoder(w).Encode(body))
}
