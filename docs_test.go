package extauth_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openlms/extauth/directory"
	"github.com/openlms/extauth/handshake"
	"github.com/openlms/extauth/handshake/login"
	"github.com/openlms/extauth/sessionstore"
)

func Example() {
	ctx := context.Background()

	// Describe the identity provider the application delegates login to.
	pc, err := handshake.NewConfig(
		"your_client_id",
		"your_client_secret",
		"https://provider.example.com/authorize",
		"https://provider.example.com/token",
		"https://provider.example.com/userinfo",
		"https://your-app.example.com/login",
	)
	if err != nil {
		// handle error
	}
	p, err := handshake.NewProvider(pc)
	if err != nil {
		// handle error
	}

	// The user directory resolving provider identities to local accounts.
	dir := directory.NewMemory()
	dir.Add(directory.Account{Username: "alice"})

	// Bind browsers to sessions with a cookie.
	sessions, err := sessionstore.Middleware(sessionstore.NewMemory(0))
	if err != nil {
		// handle error
	}

	// One endpoint serves both legs of the handshake: it renders the
	// login affordance with a fresh state token, and completes (or
	// rejects) the login when the provider redirects back.
	h, err := login.New(ctx, p, dir, func(req *http.Request) (handshake.Session, bool) {
		return sessionstore.FromRequest(req)
	})
	if err != nil {
		// handle error
	}
	mux := http.NewServeMux()
	mux.Handle("/login", sessions(h))
	fmt.Println("ready")

	// Output: ready
}
