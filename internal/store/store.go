// Package store provides the remote collection store interface and its
// implementations.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Store errors.
var (
	ErrInvalidKey       = errors.New("invalid record key")
	ErrInvalidNamespace = errors.New("invalid namespace")
	ErrNilRecord        = errors.New("record cannot be nil")
)

// Snapshot is the full key -> record state of a namespace. A nil snapshot
// means the namespace is absent or empty.
type Snapshot map[string]json.RawMessage

// Store is a key-value namespace store with whole-namespace change feeds.
type Store interface {
	// Subscribe returns a channel delivering the current snapshot of the
	// namespace immediately and again after every change. The channel is
	// closed once ctx is done. A subscriber that falls behind only sees the
	// most recent snapshot.
	Subscribe(ctx context.Context, namespace string) (<-chan Snapshot, error)

	// Write stores the full record at key, replacing any previous value.
	Write(ctx context.Context, namespace, key string, record any) error

	// Delete removes key from the namespace. Deleting an absent key succeeds.
	Delete(ctx context.Context, namespace, key string) error
}

// offer hands snap to a subscriber channel of capacity one, replacing an
// undelivered snapshot if the subscriber has not caught up yet. Callers must
// be the only sender on ch.
func offer(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func checkArgs(namespace, key string) error {
	if namespace == "" {
		return ErrInvalidNamespace
	}
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}

func encodeRecord(record any) (json.RawMessage, error) {
	if record == nil {
		return nil, ErrNilRecord
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return data, nil
}
