package auth

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

var errBasicEntry = errors.New("basic auth: invalid entry, expected operator:bcrypt_hash")

// BasicAuthenticator authenticates operators with HTTP Basic credentials
// checked against bcrypt hashes.
type BasicAuthenticator struct {
	hashes map[string][]byte // operator -> bcrypt hash
}

// NewBasicAuthenticator parses usersConfig in the form
// "operator1:hash1,operator2:hash2". Hashes may not contain commas.
func NewBasicAuthenticator(usersConfig string) (*BasicAuthenticator, error) {
	pairs, err := parsePairs(usersConfig, ":")
	if err != nil {
		return nil, fmt.Errorf("basic auth: %w", err)
	}

	hashes := make(map[string][]byte, len(pairs))
	for _, p := range pairs {
		if p.left == "" || p.right == "" {
			return nil, errBasicEntry
		}
		if _, err := bcrypt.Cost([]byte(p.right)); err != nil {
			return nil, fmt.Errorf("basic auth: operator %s: %w", p.left, err)
		}
		hashes[p.left] = []byte(p.right)
	}

	return &BasicAuthenticator{hashes: hashes}, nil
}

// Authenticate verifies the request's Basic credentials.
func (a *BasicAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	operator, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrUnauthenticated
	}

	hash, exists := a.hashes[operator]
	if !exists {
		return nil, fmt.Errorf("%w: unknown operator", ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: wrong password", ErrInvalidCredentials)
	}

	return &Identity{Method: AuthMethodBasic, Operator: operator}, nil
}

// Method returns the authentication method type.
func (a *BasicAuthenticator) Method() AuthMethod {
	return AuthMethodBasic
}
