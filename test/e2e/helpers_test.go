//go:build e2e

package e2e_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// Environment variable names for E2E test configuration.
const (
	EnvServerURL = "E2E_SERVER_URL"
	EnvAPIKey    = "E2E_API_KEY"
	EnvBasicUser = "E2E_BASIC_USER"
	EnvBasicPass = "E2E_BASIC_PASS"
)

// Default configuration values.
const (
	DefaultServerURL = "http://localhost:8080"
	DefaultTimeout   = 15 * time.Second
	echoTimeout      = 10 * time.Second
)

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// e2eServerURL returns the base URL of the server under test.
func e2eServerURL() string {
	return getEnvOrDefault(EnvServerURL, DefaultServerURL)
}

// skipIfServerUnavailable skips the test unless the server is up and both
// live views have loaded.
func skipIfServerUnavailable(t *testing.T) {
	t.Helper()

	base := e2eServerURL()
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(base + "/ready")
	if err != nil {
		t.Skipf("Server unavailable at %s: %v", base, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("Server at %s not ready: status %d", base, resp.StatusCode)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type errorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type flowResponse struct {
	Phase string         `json:"phase"`
	Draft map[string]any `json:"draft"`
}

type submitResponse struct {
	Key string `json:"key"`
}

type listingResponse struct {
	Records []map[string]any `json:"records"`
}

// doRequest sends body as JSON when non-nil and returns status and body.
func doRequest(
	t *testing.T,
	client *http.Client,
	method, url string,
	body any,
	headers map[string]string,
) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	return resp.StatusCode, respBody
}

// parseData decodes the data of an envelope into v.
func parseData(t *testing.T, body []byte, v any) {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("Failed to parse response %s: %v", body, err)
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("Failed to parse data %s: %v", resp.Data, err)
	}
}

// hasCredentials reports whether the environment provides credentials.
func hasCredentials() bool {
	return os.Getenv(EnvAPIKey) != "" ||
		(os.Getenv(EnvBasicUser) != "" && os.Getenv(EnvBasicPass) != "")
}

// buildAuthHeaders returns headers with credentials from the environment,
// if any.
func buildAuthHeaders(t *testing.T) map[string]string {
	t.Helper()

	headers := map[string]string{
		"Content-Type": "application/json",
	}

	if apiKey := os.Getenv(EnvAPIKey); apiKey != "" {
		headers["X-API-Key"] = apiKey
		return headers
	}

	user := os.Getenv(EnvBasicUser)
	pass := os.Getenv(EnvBasicPass)
	if user != "" && pass != "" {
		creds := base64.StdEncoding.EncodeToString(
			[]byte(user + ":" + pass),
		)
		headers["Authorization"] = "Basic " + creds
	}

	return headers
}

// listRecords returns the current records of collection.
func listRecords(
	t *testing.T,
	client *http.Client,
	base, collection string,
	headers map[string]string,
) []map[string]any {
	t.Helper()

	status, body := doRequest(t, client, http.MethodGet, base+"/api/v1/"+collection, nil, headers)
	if status != http.StatusOK {
		t.Fatalf("list %s: expected 200, got %d. Body: %s", collection, status, body)
	}
	var listing listingResponse
	parseData(t, body, &listing)
	return listing.Records
}

// waitForRecord polls until the record with key is present (or absent).
func waitForRecord(
	t *testing.T,
	client *http.Client,
	base, collection, key string,
	headers map[string]string,
	present bool,
) map[string]any {
	t.Helper()

	deadline := time.Now().Add(echoTimeout)
	for time.Now().Before(deadline) {
		var found map[string]any
		for _, r := range listRecords(t, client, base, collection, headers) {
			if fmt.Sprint(r["id"]) == key {
				found = r
			}
		}
		if (found != nil) == present {
			return found
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("%s/%s present=%v not observed within %s", collection, key, present, echoTimeout)
	return nil
}

// createRecord runs the draft flow for collection with fields, then
// returns the submitted key.
func createRecord(
	t *testing.T,
	client *http.Client,
	base, collection string,
	headers map[string]string,
	fields map[string]any,
	tags map[string][]string,
) string {
	t.Helper()

	draftURL := base + "/api/v1/" + collection + "/draft"
	if status, body := doRequest(t, client, http.MethodPost, draftURL, nil, headers); status != http.StatusOK {
		t.Fatalf("start draft: expected 200, got %d. Body: %s", status, body)
	}
	for name, value := range fields {
		update := map[string]any{"field": name, "value": value}
		if status, body := doRequest(t, client, http.MethodPatch, draftURL, update, headers); status != http.StatusOK {
			t.Fatalf("set %s: expected 200, got %d. Body: %s", name, status, body)
		}
	}
	for list, values := range tags {
		for _, v := range values {
			tag := map[string]any{"value": v}
			if status, body := doRequest(t, client, http.MethodPost, draftURL+"/tags/"+list, tag, headers); status != http.StatusOK {
				t.Fatalf("add %s tag: expected 200, got %d. Body: %s", list, status, body)
			}
		}
	}

	status, body := doRequest(t, client, http.MethodPost, draftURL+"/submit", nil, headers)
	if status != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d. Body: %s", status, body)
	}
	var submitted submitResponse
	parseData(t, body, &submitted)
	return submitted.Key
}

// deleteRecord removes a record, logging instead of failing so it can be
// used in cleanup.
func deleteRecord(
	t *testing.T,
	client *http.Client,
	base, collection, key string,
	headers map[string]string,
) {
	t.Helper()

	confirmed := map[string]string{"X-Confirm-Delete": "true"}
	for k, v := range headers {
		confirmed[k] = v
	}
	status, body := doRequest(t, client, http.MethodDelete, base+"/api/v1/"+collection+"/"+key, nil, confirmed)
	if status != http.StatusAccepted {
		t.Logf("deleteRecord cleanup: expected 202, got %d. Body: %s", status, body)
	}
}
