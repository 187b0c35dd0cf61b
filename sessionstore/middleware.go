package sessionstore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-uuid"
	"github.com/openlms/extauth/handshake"
)

// DefaultCookieName is the browser cookie carrying the session id.
const DefaultCookieName = "extauth_session"

type contextKey int

const sessionContextKey contextKey = 0

// Middleware binds each request to its browser session: it reads the
// session cookie, minting a fresh random id and setting the cookie when
// absent, fetches the session from the store, and attaches it to the
// request context for FromRequest. Supported options: WithCookieName,
// WithSecureCookie.
func Middleware(store Store, opt ...Option) (func(http.Handler) http.Handler, error) {
	const op = "sessionstore.Middleware"
	if store == nil {
		return nil, fmt.Errorf("%s: store is nil: %w", op, ErrNilParameter)
	}
	opts := getMiddlewareOpts(opt...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			var id string
			if c, err := req.Cookie(opts.withCookieName); err == nil && c.Value != "" {
				id = c.Value
			} else {
				generated, err := uuid.GenerateUUID()
				if err != nil {
					http.Error(w, "unable to establish session", http.StatusInternalServerError)
					return
				}
				id = generated
				http.SetCookie(w, &http.Cookie{
					Name:     opts.withCookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   opts.withSecureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}
			sess, err := store.Session(req.Context(), id)
			if err != nil {
				http.Error(w, "unable to establish session", http.StatusInternalServerError)
				return
			}
			ctx := context.WithValue(req.Context(), sessionContextKey, sess)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}, nil
}

// FromRequest returns the session Middleware attached to the request, if
// any.
func FromRequest(req *http.Request) (handshake.Session, bool) {
	s, ok := req.Context().Value(sessionContextKey).(handshake.Session)
	return s, ok
}

// middlewareOptions is the set of available options for Middleware
type middlewareOptions struct {
	withCookieName   string
	withSecureCookie bool
}

// middlewareDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func middlewareDefaults() middlewareOptions {
	return middlewareOptions{
		withCookieName:   DefaultCookieName,
		withSecureCookie: true,
	}
}

// getMiddlewareOpts gets the defaults and applies the opt overrides passed
// in.
func getMiddlewareOpts(opt ...Option) middlewareOptions {
	opts := middlewareDefaults()
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

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*middlewareOptions); ok {
			o.withCookieName = name
		}
	}
}

// WithSecureCookie toggles the cookie's Secure attribute; disable it only
// for plain-http local development.
func WithSecureCookie(secure bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*middlewareOptions); ok {
			o.withSecureCookie = secure
		}
	}
}
