package login

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/openlms/extauth/directory"
	"github.com/openlms/extauth/handshake"
)

// SessionFunc resolves the browser session for a request. The sessionstore
// package's FromRequest satisfies it when its Middleware wraps the handler.
type SessionFunc func(req *http.Request) (handshake.Session, bool)

// defaultAffordance is the login affordance rendered when a request carries
// no provider parameters. The state token and the application identifier
// travel in the auth URL; the data attributes carry them for hosts that
// embed a provider widget instead of a plain link.
var defaultAffordance = template.Must(template.New("affordance").Parse(`<!DOCTYPE html>
<html>
<head><title>Log in</title></head>
<body>
<a id="external-login" data-state="{{.State}}" href="{{.AuthURL}}">Log in with your identity provider</a>
</body>
</html>
`))

// New creates the login http handler. A request without provider
// parameters renders the login affordance carrying a freshly issued (or
// idempotently reused) state token. A request with both code and state
// completes the handshake: validate-and-consume the token first, exchange
// the code, resolve the local account, establish the authenticated
// session. Any other shape is rejected before a single network call.
//
// Supported options: WithLogger, WithHomeURL, WithSuccessFn, WithErrorFn,
// WithAffordance.
func New(ctx context.Context, p handshake.IdentityProvider, d directory.Directory, sessionFor SessionFunc, opt ...Option) (http.HandlerFunc, error) {
	const op = "login.New"
	if p == nil {
		return nil, fmt.Errorf("%s: identity provider is nil: %w", op, handshake.ErrNilParameter)
	}
	if d == nil {
		return nil, fmt.Errorf("%s: directory is nil: %w", op, handshake.ErrNilParameter)
	}
	if sessionFor == nil {
		return nil, fmt.Errorf("%s: session func is nil: %w", op, handshake.ErrNilParameter)
	}
	opts := getHandlerOpts(opt...)
	logger := opts.withLogger
	sFn := opts.withSuccessFn
	eFn := opts.withErrorFn

	return func(w http.ResponseWriter, req *http.Request) {
		sess, ok := sessionFor(req)
		if !ok {
			http.Error(w, "no session for request", http.StatusInternalServerError)
			return
		}
		reqCode := req.FormValue("code")
		reqState := req.FormValue("state")

		// provider authentication error response; the callback leg still
		// consumes the live token
		if errCode := req.FormValue("error"); errCode != "" {
			handshake.ValidateToken(sess, reqState)
			logger.Warn("identity provider returned an error response",
				"error", errCode,
				"description", req.FormValue("error_description"))
			eFn(fmt.Errorf("%s: provider error %q: %w", op, errCode, handshake.ErrProviderError), w, req)
			return
		}

		switch {
		case reqCode == "" && reqState == "":
			renderAffordance(ctx, p, sess, opts, w, req)

		case reqCode == "" || reqState == "":
			eFn(fmt.Errorf("%s: callback carried only one of code and state: %w", op, handshake.ErrMissingParameters), w, req)

		default:
			completeLogin(p, d, sess, logger, sFn, eFn, opts.withHomeURL, w, req)
		}
	}, nil
}

// renderAffordance mints or reuses the session's state token and renders
// the login affordance embedding it.
func renderAffordance(ctx context.Context, p handshake.IdentityProvider, sess handshake.Session, opts handlerOptions, w http.ResponseWriter, req *http.Request) {
	token, err := handshake.IssueToken(sess)
	if err != nil {
		opts.withLogger.Error("unable to issue state token", "err", err)
		http.Error(w, "unable to start login", http.StatusInternalServerError)
		return
	}
	authURL, err := p.AuthCodeURL(ctx, token)
	if err != nil {
		opts.withLogger.Error("unable to build auth URL", "err", err)
		http.Error(w, "unable to start login", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := opts.withAffordance.Execute(w, struct {
		State   string
		AuthURL string
	}{State: token, AuthURL: authURL}); err != nil {
		opts.withLogger.Error("unable to render login affordance", "err", err)
	}
}

// completeLogin drives the callback leg: validate-and-consume the state
// token, exchange the code, resolve the account, establish the session.
// The ordering is security critical: the exchange must never run before
// the state token has been validated.
func completeLogin(p handshake.IdentityProvider, d directory.Directory, sess handshake.Session, logger hclog.Logger, sFn SuccessResponseFunc, eFn ErrorResponseFunc, homeURL string, w http.ResponseWriter, req *http.Request) {
	const op = "login.completeLogin"

	if !handshake.ValidateToken(sess, req.FormValue("state")) {
		// potential CSRF or replay; log the attempt but never token values
		logger.Warn("rejected login callback with invalid state token",
			"remote_addr", req.RemoteAddr)
		eFn(fmt.Errorf("%s: %w", op, handshake.ErrInvalidState), w, req)
		return
	}

	identity, err := p.Exchange(req.Context(), req.FormValue("code"))
	if err != nil {
		logger.Error("authorization code exchange failed", "err", err)
		eFn(fmt.Errorf("%s: %w", op, err), w, req)
		return
	}

	username, err := identity.Resolvable()
	if err != nil {
		logger.Error("identity response has no resolvable identifier", "err", err)
		eFn(fmt.Errorf("%s: %v: %w", op, err, handshake.ErrExchangeFailed), w, req)
		return
	}
	acct, err := d.FindByUsername(req.Context(), username)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			logger.Info("verified identity has no local account", "username", username)
		} else {
			logger.Error("directory lookup failed", "err", err)
		}
		eFn(fmt.Errorf("%s: %w", op, err), w, req)
		return
	}
	if err := d.CompleteLogin(req.Context(), acct.Username); err != nil {
		logger.Error("unable to complete login", "err", err)
		eFn(fmt.Errorf("%s: %w", op, err), w, req)
		return
	}
	sess.Set(handshake.SessionKeyUsername, acct.Username)

	target, ok := sess.Take(handshake.SessionKeyWantsURL)
	if !ok || target == "" {
		target = homeURL
	}
	logger.Info("login completed", "username", acct.Username)
	sFn(acct, target, w, req)
}

// handlerOptions is the set of available options for New
type handlerOptions struct {
	withLogger     hclog.Logger
	withHomeURL    string
	withSuccessFn  SuccessResponseFunc
	withErrorFn    ErrorResponseFunc
	withAffordance *template.Template
}

// handlerDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func handlerDefaults() handlerOptions {
	return handlerOptions{
		withLogger:     hclog.NewNullLogger(),
		withHomeURL:    "/",
		withSuccessFn:  DefaultSuccess,
		withErrorFn:    DefaultError,
		withAffordance: defaultAffordance,
	}
}

// getHandlerOpts gets the defaults and applies the opt overrides passed in.
func getHandlerOpts(opt ...Option) handlerOptions {
	opts := handlerDefaults()
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(&opts)
	}
	return opts
}

// Option defines the functional options type for this package.
type Option func(interface{})

// WithLogger provides an optional logger for handshake events; rejected
// state tokens are logged at warn as a potential attack signal.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithHomeURL provides the post-login destination used when the session
// recorded no originally-requested URL. Defaults to "/".
func WithHomeURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && u != "" {
			o.withHomeURL = u
		}
	}
}

// WithSuccessFn overrides the response written after a completed login.
func WithSuccessFn(fn SuccessResponseFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && fn != nil {
			o.withSuccessFn = fn
		}
	}
}

// WithErrorFn overrides the response written for a rejected handshake.
func WithErrorFn(fn ErrorResponseFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && fn != nil {
			o.withErrorFn = fn
		}
	}
}

// WithAffordance overrides the login affordance template. The template is
// executed with .State and .AuthURL.
func WithAffordance(t *template.Template) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok && t != nil {
			o.withAffordance = t
		}
	}
}
