// Package auth identifies the operator behind an admin API request.
package auth

import (
	"context"
	"errors"
	"net/http"
)

// AuthMethod represents the authentication method used.
type AuthMethod string

const (
	// AuthMethodNone indicates no authentication.
	AuthMethodNone AuthMethod = "none"
	// AuthMethodBasic indicates HTTP Basic authentication.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodAPIKey indicates API key authentication.
	AuthMethodAPIKey AuthMethod = "apikey"
	// AuthMethodMulti indicates multi-method authentication.
	AuthMethodMulti AuthMethod = "multi"
)

// AnonymousOperator is the operator of requests that carry no identity,
// which is every request when authentication is disabled.
const AnonymousOperator = "anonymous"

// Identity is the authenticated operator of a request.
type Identity struct {
	Method   AuthMethod
	Operator string
}

// Authenticator validates a request and returns the operator identity.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
	Method() AuthMethod
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type contextKey string

const identityKey contextKey = "operator_identity"

// FromContext retrieves the Identity stored by the auth middleware.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// WithIdentity stores id in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Operator returns the operator name of the request context, or
// AnonymousOperator when no identity was attached.
func Operator(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok && id.Operator != "" {
		return id.Operator
	}
	return AnonymousOperator
}
