//go:build functional

// Package functional drives a complete in-process server over real sockets.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tanhuynh200412/catalog-admin/internal/auth"
	"github.com/tanhuynh200412/catalog-admin/internal/catalog"
	"github.com/tanhuynh200412/catalog-admin/internal/config"
	"github.com/tanhuynh200412/catalog-admin/internal/server"
	"github.com/tanhuynh200412/catalog-admin/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost   = "TEST_SERVER_HOST"
	EnvTestStoreBackend = "TEST_STORE_BACKEND"
)

// Default test configuration values.
const (
	DefaultTestHost         = "localhost"
	DefaultTestTimeout      = 10 * time.Second
	DefaultRequestTimeout   = 5 * time.Second
	DefaultWebSocketTimeout = 5 * time.Second
	DefaultShutdownTimeout  = 5 * time.Second
)

// ServerOptions tune a TestServer.
type ServerOptions struct {
	// Seed is loaded into the store before the catalog starts.
	Seed map[string]map[string]any
	// AuthMode, BasicAuthUsers and APIKeys configure authentication.
	AuthMode       string
	BasicAuthUsers string
	APIKeys        string
}

// TestServer runs the catalog and the HTTP server on a free port.
type TestServer struct {
	Server  *server.Server
	Catalog *catalog.Catalog
	Store   store.Store
	BaseURL string
	WSURL   string

	t        *testing.T
	cancel   context.CancelFunc
	syncDone chan error
	mu       sync.Mutex
	started  bool
}

// NewTestServer builds a server over the backend named by
// TEST_STORE_BACKEND: "redis" (default, backed by miniredis) or "memory".
func NewTestServer(t *testing.T, opts ServerOptions) *TestServer {
	t.Helper()

	host := DefaultTestHost
	if h := os.Getenv(EnvTestServerHost); h != "" {
		host = h
	}

	port := freePort(t, host)
	s := newStore(t)
	seed(t, s, opts.Seed)

	cfg := &config.Config{
		ServerPort:      port,
		LogLevel:        "error",
		ShutdownTimeout: DefaultShutdownTimeout,
		AuthMode:        opts.AuthMode,
		BasicAuthUsers:  opts.BasicAuthUsers,
		APIKeys:         opts.APIKeys,
	}

	authenticator, err := auth.New(cfg.AuthMode, cfg.BasicAuthUsers, cfg.APIKeys)
	if err != nil {
		t.Fatalf("create authenticator: %v", err)
	}

	c := catalog.New(s, catalog.Options{}, zap.NewNop())

	return &TestServer{
		Server:   server.New(cfg, zap.NewNop(), c, authenticator),
		Catalog:  c,
		Store:    s,
		BaseURL:  fmt.Sprintf("http://%s:%d", host, port),
		WSURL:    fmt.Sprintf("ws://%s:%d/ws", host, port),
		t:        t,
		syncDone: make(chan error, 1),
	}
}

func freePort(t *testing.T, host string) int {
	t.Helper()
	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		t.Fatalf("find available port: %v", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

func newStore(t *testing.T) store.Store {
	t.Helper()

	if os.Getenv(EnvTestStoreBackend) == config.StoreBackendMemory {
		return store.NewMemoryStore()
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.NewRedisStore(client, config.DefaultRedisKeyPrefix, zap.NewNop())
}

func seed(t *testing.T, s store.Store, data map[string]map[string]any) {
	t.Helper()
	ctx := context.Background()
	for namespace, records := range data {
		for key, record := range records {
			if err := s.Write(ctx, namespace, key, record); err != nil {
				t.Fatalf("seed %s/%s: %v", namespace, key, err)
			}
		}
	}
}

// Start runs the catalog and the server and waits for readiness.
func (ts *TestServer) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ts.cancel = cancel
	go func() { ts.syncDone <- ts.Catalog.Run(ctx) }()

	go func() {
		if err := ts.Server.Start(); err != nil {
			ts.t.Logf("Server error: %v", err)
		}
	}()

	ts.waitForReady()
	ts.started = true
}

// waitForReady polls /ready until both live views have loaded.
func (ts *TestServer) waitForReady() {
	deadline := time.Now().Add(DefaultTestTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.BaseURL + "/ready")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	ts.t.Fatalf("Server did not become ready within %s", DefaultTestTimeout)
}

// Stop shuts the server down and stops live view sync.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := ts.Server.Shutdown(ctx); err != nil {
		ts.t.Logf("Server shutdown error: %v", err)
	}
	ts.cancel()
	<-ts.syncDone

	ts.started = false
}

// StartTestServer starts a server that stops at the end of the test.
func StartTestServer(t *testing.T, opts ServerOptions) *TestServer {
	t.Helper()
	ts := NewTestServer(t, opts)
	ts.Start()
	t.Cleanup(ts.Stop)
	return ts
}

// HTTPClient provides a configured HTTP client for tests.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	headers map[string]string
}

// NewHTTPClient creates a new HTTP client for testing. headers are sent
// with every request.
func NewHTTPClient(baseURL string, headers map[string]string) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: DefaultRequestTimeout},
		baseURL: baseURL,
		headers: headers,
	}
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do executes an HTTP request. A non-nil body is sent as JSON.
func (c *HTTPClient) Do(t *testing.T, method, path string, body any, headers map[string]string) *Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}
}

// APIResponse represents the response envelope.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ErrorResponse represents the data of an error envelope.
type ErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// FlowResponse represents a creation flow state.
type FlowResponse struct {
	Collection  string            `json:"collection"`
	Phase       string            `json:"phase"`
	FormVisible bool              `json:"formVisible"`
	Draft       map[string]any    `json:"draft"`
	Error       string            `json:"error"`
	Fields      map[string]string `json:"fields"`
}

// ListingResponse represents a collection listing.
type ListingResponse struct {
	Collection string           `json:"collection"`
	Records    []map[string]any `json:"records"`
	Categories []map[string]any `json:"categories"`
	Loading    bool             `json:"loading"`
	Error      string           `json:"error"`
}

// ParseData decodes the data of an envelope into v.
func ParseData(t *testing.T, resp *Response, v any) *APIResponse {
	t.Helper()
	var env APIResponse
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		t.Fatalf("parse API response %q: %v", resp.Body, err)
	}
	if v != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, v); err != nil {
			t.Fatalf("parse response data %q: %v", env.Data, err)
		}
	}
	return &env
}

// AssertStatusCode asserts that the response has the expected status code.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("Expected status code %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
}

// Eventually polls cond until it holds or the test timeout passes.
func Eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(DefaultTestTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// ListRecords fetches a collection listing.
func ListRecords(t *testing.T, c *HTTPClient, collection string) ListingResponse {
	t.Helper()
	resp := c.Do(t, http.MethodGet, "/api/v1/"+collection, nil, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var listing ListingResponse
	ParseData(t, resp, &listing)
	return listing
}

// LogTestStart logs the start of a test.
func LogTestStart(t *testing.T, testID, testName string) {
	t.Helper()
	t.Logf("Starting test %s: %s", testID, testName)
}

// LogTestEnd logs the end of a test.
func LogTestEnd(t *testing.T, testID string) {
	t.Helper()
	t.Logf("Completed test %s", testID)
}

// categorySeed returns n categories keyed 1..n.
func categorySeed(n int) map[string]map[string]any {
	records := make(map[string]any, n)
	for i := 1; i <= n; i++ {
		records[fmt.Sprint(i)] = map[string]any{
			"id":     i,
			"title":  fmt.Sprintf("Category %d", i),
			"picUrl": fmt.Sprintf("http://img/%d.jpg", i),
		}
	}
	return map[string]map[string]any{catalog.DefaultCategoryNamespace: records}
}
