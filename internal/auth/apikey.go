package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
)

// APIKeyHeader is the HTTP header name for API key authentication.
const APIKeyHeader = "X-API-Key"

var errAPIKeyEntry = errors.New("apikey auth: invalid entry, expected key:operator")

// APIKeyAuthenticator maps API keys sent in the X-API-Key header to
// operator names.
type APIKeyAuthenticator struct {
	operators map[string]string // key -> operator
}

// NewAPIKeyAuthenticator parses keysConfig in the form
// "key1:operator1,key2:operator2".
func NewAPIKeyAuthenticator(keysConfig string) (*APIKeyAuthenticator, error) {
	pairs, err := parsePairs(keysConfig, ":")
	if err != nil {
		return nil, fmt.Errorf("apikey auth: %w", err)
	}

	operators := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.left == "" || p.right == "" {
			return nil, errAPIKeyEntry
		}
		operators[p.left] = p.right
	}

	return &APIKeyAuthenticator{operators: operators}, nil
}

// Authenticate compares the presented key against every configured key in
// constant time.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	presented := r.Header.Get(APIKeyHeader)
	if presented == "" {
		return nil, ErrUnauthenticated
	}

	var operator string
	for key, name := range a.operators {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
			operator = name
		}
	}
	if operator == "" {
		return nil, ErrInvalidAPIKey
	}

	return &Identity{Method: AuthMethodAPIKey, Operator: operator}, nil
}

// Method returns the authentication method type.
func (a *APIKeyAuthenticator) Method() AuthMethod {
	return AuthMethodAPIKey
}
