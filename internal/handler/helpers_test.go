package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tanhuynh200412/catalog-admin/internal/auth"
	"github.com/tanhuynh200412/catalog-admin/internal/catalog"
	"github.com/tanhuynh200412/catalog-admin/internal/store"
)

// flakyStore fails writes or deletes on demand and otherwise behaves like
// the memory store.
type flakyStore struct {
	*store.MemoryStore

	mu        sync.Mutex
	writeErr  error
	deleteErr error
}

func (f *flakyStore) Write(ctx context.Context, namespace, key string, record any) error {
	f.mu.Lock()
	err := f.writeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.Write(ctx, namespace, key, record)
}

func (f *flakyStore) Delete(ctx context.Context, namespace, key string) error {
	f.mu.Lock()
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.Delete(ctx, namespace, key)
}

func (f *flakyStore) failWrites(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}

func (f *flakyStore) failDeletes(err error) {
	f.mu.Lock()
	f.deleteErr = err
	f.mu.Unlock()
}

// seedCategories returns categories 1..n in store form.
func seedCategories(n int) store.Snapshot {
	snap := make(store.Snapshot, n)
	for i := 1; i <= n; i++ {
		snap[fmt.Sprint(i)] = json.RawMessage(fmt.Sprintf(`{"id":%d,"title":"c%d","picUrl":"http://x/%d.jpg"}`, i, i, i))
	}
	return snap
}

type testEnv struct {
	store   *flakyStore
	catalog *catalog.Catalog
	router  *mux.Router
}

// newTestEnv runs a catalog over a seeded memory store and waits until
// both views are loaded.
func newTestEnv(t *testing.T, categories int) *testEnv {
	t.Helper()

	mem := store.NewMemoryStore()
	if categories > 0 {
		mem.Load(map[string]store.Snapshot{catalog.DefaultCategoryNamespace: seedCategories(categories)})
	}
	fs := &flakyStore{MemoryStore: mem}

	c := catalog.New(fs, catalog.Options{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitFor(t, "catalog ready", c.Ready)

	router := mux.NewRouter()
	NewRESTHandler(c, zap.NewNop()).RegisterRoutes(router)

	return &testEnv{store: fs, catalog: c, router: router}
}

// do sends a request as operator ("" for anonymous).
func (e *testEnv) do(t *testing.T, operator, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if operator != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{
			Method: auth.AuthMethodAPIKey, Operator: operator,
		}))
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

type flowBody struct {
	Phase       string            `json:"phase"`
	FormVisible bool              `json:"formVisible"`
	Draft       map[string]any    `json:"draft"`
	Error       string            `json:"error"`
	Fields      map[string]string `json:"fields"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return env
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
