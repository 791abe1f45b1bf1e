package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tanhuynh200412/catalog-admin/internal/store"
)

type writeCall struct {
	Namespace string
	Key       string
	Record    any
}

// fakeStore records mutations and lets tests push snapshots by hand.
type fakeStore struct {
	mu        sync.Mutex
	writes    []writeCall
	deletes   []writeCall
	writeErr  error
	deleteErr error
	// block, when set, holds Write until it is closed.
	block     chan struct{}
	entered   chan struct{}
	feeds     map[string]chan store.Snapshot
	subscribe error
}

func newFakeStore() *fakeStore {
	return &fakeStore{feeds: make(map[string]chan store.Snapshot)}
}

func (f *fakeStore) Subscribe(ctx context.Context, namespace string) (<-chan store.Snapshot, error) {
	if f.subscribe != nil {
		return nil, f.subscribe
	}
	f.mu.Lock()
	ch := make(chan store.Snapshot, 8)
	f.feeds[namespace] = ch
	f.mu.Unlock()

	out := make(chan store.Snapshot)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-ch:
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeStore) push(t *testing.T, namespace string, snap store.Snapshot) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		f.mu.Lock()
		ch, ok := f.feeds[namespace]
		f.mu.Unlock()
		if ok {
			ch <- snap
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no subscriber for %s", namespace)
		}
		time.Sleep(time.Millisecond)
	}
}

func (f *fakeStore) Write(ctx context.Context, namespace, key string, record any) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, writeCall{Namespace: namespace, Key: key, Record: record})
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, namespace, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, writeCall{Namespace: namespace, Key: key})
	return nil
}

func (f *fakeStore) writeCalls() []writeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]writeCall(nil), f.writes...)
}

func (f *fakeStore) deleteCalls() []writeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]writeCall(nil), f.deletes...)
}

// snapshotOf encodes records into a snapshot keyed by the given keys.
func snapshotOf(t *testing.T, entries map[string]any) store.Snapshot {
	t.Helper()
	snap := make(store.Snapshot, len(entries))
	for k, v := range entries {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", k, err)
		}
		snap[k] = raw
	}
	return snap
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func nopLogger() *zap.Logger { return zap.NewNop() }
