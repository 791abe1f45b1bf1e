package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tanhuynh200412/catalog-admin/internal/auth"
)

func TestNewAPIKeyAuthenticator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  string
		wantErr bool
	}{
		{name: "single key", config: "k1:alice"},
		{name: "several keys with spaces", config: " k1:alice , k2:bob ,"},
		{name: "empty config", config: "", wantErr: true},
		{name: "only separators", config: " , ,", wantErr: true},
		{name: "missing colon", config: "k1alice", wantErr: true},
		{name: "empty operator", config: "k1:", wantErr: true},
		{name: "empty key", config: ":alice", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := auth.NewAPIKeyAuthenticator(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAPIKeyAuthenticator() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPIKeyAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	a, err := auth.NewAPIKeyAuthenticator("k1:alice,k2:bob")
	if err != nil {
		t.Fatalf("NewAPIKeyAuthenticator() error: %v", err)
	}

	tests := []struct {
		name    string
		key     string
		want    string
		wantErr error
	}{
		{name: "first key", key: "k1", want: "alice"},
		{name: "second key", key: "k2", want: "bob"},
		{name: "no header", key: "", wantErr: auth.ErrUnauthenticated},
		{name: "unknown key", key: "k3", wantErr: auth.ErrInvalidAPIKey},
		{name: "prefix of a key", key: "k", wantErr: auth.ErrInvalidAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
			if tt.key != "" {
				req.Header.Set(auth.APIKeyHeader, tt.key)
			}

			// Act
			id, err := a.Authenticate(req)

			// Assert
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() unexpected error: %v", err)
			}
			if id.Operator != tt.want || id.Method != auth.AuthMethodAPIKey {
				t.Errorf("identity = %+v, want operator %s via apikey", id, tt.want)
			}
		})
	}

	if a.Method() != auth.AuthMethodAPIKey {
		t.Errorf("Method() = %s, want apikey", a.Method())
	}
}
