package handshake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
	sdkHttp "github.com/openlms/extauth/sdk/http"
)

// ClientSecret is a string type for the application secret shared with the
// identity provider. It redacts itself when printed or marshaled, so it can
// never leak through logs or error messages.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for a client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (s ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (s ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// DefaultExchangeTimeout bounds the provider network calls made while
// exchanging an authorization code, unless the config overrides it.
const DefaultExchangeTimeout = 10 * time.Second

// Config represents the configuration for the identity provider an
// application delegates login to. Application identity and secret are
// injected here at startup; they are never literals in control flow and
// never logged.
type Config struct {
	// ClientID is the application identifier registered with the provider.
	// It is embedded in the login affordance and the redirect to the
	// provider.
	ClientID string

	// ClientSecret is the application secret used during the code exchange.
	ClientSecret ClientSecret

	// AuthURL is the provider endpoint the user's browser is redirected to.
	AuthURL string

	// TokenURL is the provider endpoint the authorization code is exchanged
	// against.
	TokenURL string

	// UserInfoURL is the provider endpoint identity information is fetched
	// from with the exchanged access token.
	UserInfoURL string

	// RedirectURL is this application's callback URL, echoed back by the
	// provider together with the state token.
	RedirectURL string

	// Scopes is an optional list of scopes to request from the provider.
	Scopes []string

	// ExchangeTimeout bounds the network calls of a single code exchange.
	// DefaultExchangeTimeout is used when zero.
	ExchangeTimeout time.Duration

	// ProviderCA is an optional CA cert to use when sending requests to the
	// provider.
	ProviderCA string
}

// NewConfig composes a new provider config and validates it. Supported
// options: WithScopes, WithProviderCA, WithExchangeTimeout.
func NewConfig(clientID string, clientSecret ClientSecret, authURL, tokenURL, userInfoURL, redirectURL string, opt ...Option) (*Config, error) {
	const op = "handshake.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientID:        clientID,
		ClientSecret:    clientSecret,
		AuthURL:         authURL,
		TokenURL:        tokenURL,
		UserInfoURL:     userInfoURL,
		RedirectURL:     redirectURL,
		Scopes:          opts.withScopes,
		ExchangeTimeout: opts.withExchangeTimeout,
		ProviderCA:      opts.withProviderCA,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the provider configuration. All problems found are accumulated
// and returned together.
func (c *Config) Validate() error {
	const op = "handshake.Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if c.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("client secret is empty: %w", ErrInvalidParameter))
	}
	for _, ep := range []struct {
		name string
		raw  string
	}{
		{"auth URL", c.AuthURL},
		{"token URL", c.TokenURL},
		{"userinfo URL", c.UserInfoURL},
		{"redirect URL", c.RedirectURL},
	} {
		name, raw := ep.name, ep.raw
		if raw == "" {
			result = multierror.Append(result, fmt.Errorf("%s is empty: %w", name, ErrInvalidParameter))
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s is invalid: %w", name, err))
			continue
		}
		if u.Scheme != "https" && u.Scheme != "http" {
			result = multierror.Append(result, fmt.Errorf("%s scheme is not http or https: %w", name, ErrInvalidParameter))
		}
	}
	if c.ExchangeTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("exchange timeout is negative: %w", ErrInvalidParameter))
	}
	return result.ErrorOrNil()
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "handshake.Config.HTTPClient"
	client, err := sdkHttp.NewClient(c.ProviderCA)
	if err != nil {
		if err == sdkHttp.ErrInvalidCertificatePem {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// timeout returns the configured exchange timeout, or the default.
func (c *Config) timeout() time.Duration {
	if c.ExchangeTimeout == 0 {
		return DefaultExchangeTimeout
	}
	return c.ExchangeTimeout
}

// configOptions is the set of available options for Config functions
type configOptions struct {
	withScopes          []string
	withProviderCA      string
	withExchangeTimeout time.Duration
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the defaults and applies the opt overrides passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional list of scopes for the provider's config
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithProviderCA provides an optional CA cert for the provider's config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithExchangeTimeout provides an optional timeout bounding the network
// calls of a single code exchange.
func WithExchangeTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withExchangeTimeout = d
		}
	}
}
