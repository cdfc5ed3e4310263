// Package session models the session/auth service as a narrow capability
// interface. The real service validates identity via a session cookie
// plus an HMAC request stamp; this
// package ships only the contract the wallet service depends on plus a
// thin reference HTTP client so the server is runnable standalone.
package session

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Gate authenticates a request and resolves the caller's user_id. The
// wallet service trusts user_id only after Gate.Authenticate succeeds.
type Gate interface {
	// Authenticate validates the session cookie and HMAC stamp carried by
	// r, returning the authenticated user's id.
	Authenticate(ctx context.Context, r *http.Request) (uuid.UUID, error)
}

// HTTPClient is a reference Gate implementation that delegates to an
// external session service over HTTP. It is intentionally minimal: real
// session/auth is out of scope for this repo.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, Client: http.DefaultClient}
}

// Authenticate is not implemented here: wiring a live session service is
// outside this repo's scope. Callers in tests and local dev supply a
// fake Gate instead.
func (c *HTTPClient) Authenticate(ctx context.Context, r *http.Request) (uuid.UUID, error) {
	return uuid.Nil, errNotImplemented
}

// HeaderGate trusts an X-User-ID header outright. Development and test
// topologies only; never wire it where real traffic can reach.
type HeaderGate struct{}

func (HeaderGate) Authenticate(_ context.Context, r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.Nil, errNotImplemented
	}
	return uuid.Parse(raw)
}

var errNotImplemented = &notImplementedError{}

type notImplementedError struct{}

func (e *notImplementedError) Error() string {
	return "session.HTTPClient: no session service configured; supply a Gate implementation"
}
