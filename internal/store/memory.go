package store

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
)

type subscriber struct {
	ch chan Snapshot
}

// MemoryStore implements Store with process-local namespaces.
type MemoryStore struct {
	mu          sync.RWMutex
	namespaces  map[string]map[string]json.RawMessage
	subscribers map[string]map[*subscriber]struct{}
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces:  make(map[string]map[string]json.RawMessage),
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers a change feed for namespace.
func (s *MemoryStore) Subscribe(ctx context.Context, namespace string) (<-chan Snapshot, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("subscribe %s: %w", namespace, ctx.Err())
	default:
	}

	if namespace == "" {
		return nil, ErrInvalidNamespace
	}

	sub := &subscriber{ch: make(chan Snapshot, 1)}

	s.mu.Lock()
	if s.subscribers[namespace] == nil {
		s.subscribers[namespace] = make(map[*subscriber]struct{})
	}
	s.subscribers[namespace][sub] = struct{}{}
	offer(sub.ch, s.snapshotLocked(namespace))
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		delete(s.subscribers[namespace], sub)
		close(sub.ch)
		s.mu.Unlock()
	}()

	return sub.ch, nil
}

// Write stores the JSON encoding of record at key and notifies subscribers.
func (s *MemoryStore) Write(ctx context.Context, namespace, key string, record any) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("write %s/%s: %w", namespace, key, ctx.Err())
	default:
	}

	if err := checkArgs(namespace, key); err != nil {
		return err
	}

	data, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", namespace, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.namespaces[namespace] == nil {
		s.namespaces[namespace] = make(map[string]json.RawMessage)
	}
	s.namespaces[namespace][key] = data
	s.publishLocked(namespace)

	return nil
}

// Delete removes key and notifies subscribers when something was removed.
func (s *MemoryStore) Delete(ctx context.Context, namespace, key string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete %s/%s: %w", namespace, key, ctx.Err())
	default:
	}

	if err := checkArgs(namespace, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.namespaces[namespace]
	if _, exists := records[key]; !exists {
		return nil
	}

	delete(records, key)
	s.publishLocked(namespace)

	return nil
}

// Fetch returns the current snapshot of namespace.
func (s *MemoryStore) Fetch(ctx context.Context, namespace string) (Snapshot, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", namespace, ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked(namespace), nil
}

// Load merges raw records into the store, one notification per namespace.
// Values are stored as given, without validation.
func (s *MemoryStore) Load(data map[string]Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for namespace, records := range data {
		if len(records) == 0 {
			continue
		}
		if s.namespaces[namespace] == nil {
			s.namespaces[namespace] = make(map[string]json.RawMessage, len(records))
		}
		maps.Copy(s.namespaces[namespace], records)
		s.publishLocked(namespace)
	}
}

func (s *MemoryStore) snapshotLocked(namespace string) Snapshot {
	records := s.namespaces[namespace]
	if len(records) == 0 {
		return nil
	}
	return Snapshot(maps.Clone(records))
}

func (s *MemoryStore) publishLocked(namespace string) {
	snap := s.snapshotLocked(namespace)
	for sub := range s.subscribers[namespace] {
		offer(sub.ch, snap)
	}
}
