package handshake

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	sdkHttp "github.com/openlms/extauth/sdk/http"
	"golang.org/x/oauth2"
	"golang.org/x/text/language"
)

// IdentityProvider is the external collaborator the handshake delegates
// identity verification to. AuthCodeURL produces the redirect that starts
// the provider leg of the handshake; Exchange turns the authorization code
// the provider handed back into identity information. All provider-defined
// failure modes (invalid code, expired code, network or provider error) are
// returned as errors wrapping ErrExchangeFailed.
type IdentityProvider interface {
	// AuthCodeURL returns the provider URL to redirect the user's browser
	// to, carrying the application's client id and the given state token.
	AuthCodeURL(ctx context.Context, state string, opt ...Option) (string, error)

	// Exchange trades the authorization code for the user's identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Provider implements IdentityProvider against a provider described by a
// Config, using the standard OAuth2 authorization code exchange followed by
// a userinfo request.
type Provider struct {
	config *Config
	client *http.Client
}

// ensure that Provider implements the IdentityProvider interface
var _ IdentityProvider = (*Provider)(nil)

// NewProvider creates a Provider from the config. The http client used for
// all provider calls is constructed once, honoring the config's optional
// provider CA.
func NewProvider(c *Config) (*Provider, error) {
	const op = "handshake.NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	return &Provider{
		config: c,
		client: client,
	}, nil
}

// oauth2Config builds the x/oauth2 config for the provider endpoints.
func (p *Provider) oauth2Config() oauth2.Config {
	return oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: string(p.config.ClientSecret),
		RedirectURL:  p.config.RedirectURL,
		Scopes:       p.config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.config.AuthURL,
			TokenURL:  p.config.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthCodeURL will generate the URL the user's browser is redirected to in
// order to kick off the provider leg of the handshake. The state token is
// carried as the "state" parameter and is echoed back verbatim by the
// provider in its callback. Supported options: WithUILocales.
func (p *Provider) AuthCodeURL(ctx context.Context, state string, opt ...Option) (string, error) {
	const op = "handshake.Provider.AuthCodeURL"
	if state == "" {
		return "", fmt.Errorf("%s: state is empty: %w", op, ErrInvalidParameter)
	}
	opts := getAuthURLOpts(opt...)
	var authCodeOpts []oauth2.AuthCodeOption
	if len(opts.withUILocales) > 0 {
		locales := make([]string, 0, len(opts.withUILocales))
		for _, l := range opts.withUILocales {
			locales = append(locales, l.String())
		}
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("ui_locales", strings.Join(locales, " ")))
	}
	oauth2Config := p.oauth2Config()
	return oauth2Config.AuthCodeURL(state, authCodeOpts...), nil
}

// Exchange trades the authorization code for identity information: first
// the code exchange against the token endpoint, then a userinfo request
// with the resulting access token. Both network calls run under the
// config's exchange timeout and the provider http client.
func (p *Provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	const op = "handshake.Provider.Exchange"
	if code == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()
	ctx = sdkHttp.ClientContext(ctx, p.client)

	oauth2Config := p.oauth2Config()
	tok, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %v: %w", op, err, ErrExchangeFailed)
	}

	identity, err := p.userInfo(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return identity, nil
}

// userInfo fetches and decodes the provider's identity payload.
func (p *Provider) userInfo(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	const op = "handshake.Provider.userInfo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create userinfo request: %w", op, err)
	}
	tok.SetAuthHeader(req)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: userinfo request failed: %v: %w", op, err, ErrExchangeFailed)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read userinfo response: %w", op, ErrExchangeFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: userinfo returned status %d: %w", op, resp.StatusCode, ErrExchangeFailed)
	}
	var payload struct {
		Error string    `json:"error"`
		Info  *Identity `json:"info"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%s: unable to decode userinfo response: %w", op, ErrExchangeFailed)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("%s: provider error %q: %w", op, payload.Error, ErrExchangeFailed)
	}
	if payload.Info == nil {
		// providers that return the identity at the top level instead of
		// under an info envelope
		var flat Identity
		if err := json.Unmarshal(body, &flat); err != nil {
			return nil, fmt.Errorf("%s: unable to decode userinfo response: %w", op, ErrExchangeFailed)
		}
		payload.Info = &flat
	}
	if _, err := payload.Info.Resolvable(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payload.Info, nil
}

// authURLOptions is the set of available options for AuthCodeURL
type authURLOptions struct {
	withUILocales []language.Tag
}

// authURLDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func authURLDefaults() authURLOptions {
	return authURLOptions{}
}

// getAuthURLOpts gets the defaults and applies the opt overrides passed in.
func getAuthURLOpts(opt ...Option) authURLOptions {
	opts := authURLDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithUILocales provides an optional list of locales the provider should
// prefer when rendering its own login pages, sent as the ui_locales
// parameter.
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withUILocales = locales
		}
	}
}
