package auth

import (
	"errors"
	"fmt"
	"strings"
)

var errNoEntries = errors.New("no entries configured")

type pair struct {
	left, right string
}

// parsePairs splits a "a:b,c:d" list. Entries are trimmed and blank entries
// skipped; each entry is split on the first sep.
func parsePairs(config, sep string) ([]pair, error) {
	var pairs []pair
	for _, entry := range strings.Split(config, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		left, right, ok := strings.Cut(entry, sep)
		if !ok {
			return nil, fmt.Errorf("entry %q has no %q separator", entry, sep)
		}
		pairs = append(pairs, pair{left: strings.TrimSpace(left), right: strings.TrimSpace(right)})
	}
	if len(pairs) == 0 {
		return nil, errNoEntries
	}
	return pairs, nil
}

// New builds the authenticator for mode. Mode "none" (or empty) returns a
// nil Authenticator, which disables authentication. In multi mode every
// non-empty credential list contributes an authenticator, Basic first.
func New(mode, basicUsers, apiKeys string) (Authenticator, error) {
	switch AuthMethod(mode) {
	case AuthMethodNone, "":
		return nil, nil
	case AuthMethodBasic:
		return NewBasicAuthenticator(basicUsers)
	case AuthMethodAPIKey:
		return NewAPIKeyAuthenticator(apiKeys)
	case AuthMethodMulti:
		var chain []Authenticator
		if basicUsers != "" {
			b, err := NewBasicAuthenticator(basicUsers)
			if err != nil {
				return nil, err
			}
			chain = append(chain, b)
		}
		if apiKeys != "" {
			k, err := NewAPIKeyAuthenticator(apiKeys)
			if err != nil {
				return nil, err
			}
			chain = append(chain, k)
		}
		if len(chain) == 0 {
			return nil, fmt.Errorf("multi auth: %w", errNoEntries)
		}
		return NewMultiAuthenticator(chain...), nil
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", mode)
	}
}
