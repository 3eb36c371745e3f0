// Package identity provides authenticated-identity resolution for studentos.
// It validates bearer tokens and exposes the resulting identity through the
// request context so downstream layers (rate limiting, handlers) can consume
// it without inspecting credentials themselves.
package identity

import (
	"context"
	"net/http"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	// ID is the stable user identifier.
	ID string
	// Email is the user's address, when the token carries one.
	Email string
}

// Type represents the authentication method used.
type Type string

const (
	// TypeBearer represents Authorization: Bearer token authentication.
	TypeBearer Type = "bearer"
	// TypeNone represents no authentication or failed auth with no valid type.
	TypeNone Type = "none"
)

// Result contains the outcome of an authentication attempt.
type Result struct {
	// Identity is populated when Valid is true.
	Identity Identity
	// Type indicates which authentication method was used (or attempted).
	Type Type
	// Error contains the error message if authentication failed.
	Error string
	// Valid indicates whether authentication succeeded.
	Valid bool
}

// Authenticator defines the interface for authentication mechanisms.
type Authenticator interface {
	// Validate checks the request for valid credentials.
	// Returns a Result with Valid=true if authentication succeeds.
	Validate(r *http.Request) Result

	// Type returns the authentication type this authenticator handles.
	Type() Type
}

type ctxKey struct{}

// WithIdentity returns a context carrying the given identity.
// Route registration attaches this after successful authentication.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached to the context, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// FromRequest returns the identity attached to the request context, if any.
func FromRequest(r *http.Request) (Identity, bool) {
	return FromContext(r.Context())
}
