package auth

import (
	"errors"
	"net/http"
)

// MultiAuthenticator tries each authenticator in order. An authenticator
// that finds no credentials of its kind passes the request on; one that
// finds bad credentials ends the chain with its error.
type MultiAuthenticator struct {
	chain []Authenticator
}

// NewMultiAuthenticator creates a MultiAuthenticator over chain.
func NewMultiAuthenticator(chain ...Authenticator) *MultiAuthenticator {
	return &MultiAuthenticator{chain: chain}
}

// Authenticate returns the first identity established by the chain.
func (a *MultiAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	for _, next := range a.chain {
		id, err := next.Authenticate(r)
		switch {
		case err == nil:
			return id, nil
		case !errors.Is(err, ErrUnauthenticated):
			return nil, err
		}
	}
	return nil, ErrUnauthenticated
}

// Method returns the authentication method type.
func (a *MultiAuthenticator) Method() AuthMethod {
	return AuthMethodMulti
}
