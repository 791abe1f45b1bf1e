package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/tanhuynh200412/catalog-admin/internal/model"
	"github.com/tanhuynh200412/catalog-admin/internal/store"
)

var errNotObject = errors.New("value is not a JSON object")

// Record is a stored entity whose identifier is the store key.
type Record[T any] interface {
	Key() model.Key
	WithKey(model.Key) T
}

// Normalize converts a raw snapshot into records ordered by key. The key of
// each entry replaces any id carried inside the value. A nil or empty
// snapshot yields an empty slice.
func Normalize[T Record[T]](snap store.Snapshot) ([]T, error) {
	records := make([]T, 0, len(snap))

	for key, raw := range snap {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, &SnapshotReadError{Key: key, Err: errNotObject}
		}

		var r T
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, &SnapshotReadError{Key: key, Err: err}
		}
		records = append(records, r.WithKey(model.Key(key)))
	}

	slices.SortFunc(records, func(a, b T) int {
		return compareKeys(a.Key(), b.Key())
	})

	return records, nil
}

// compareKeys orders numeric keys by value ahead of non-numeric keys, which
// follow in lexical order. Numerically equal keys ("1", "01") fall back to
// lexical order so the result is total.
func compareKeys(a, b model.Key) int {
	ai, aok := a.Int()
	bi, bok := b.Int()

	switch {
	case aok && bok:
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
	case aok:
		return -1
	case bok:
		return 1
	}

	return strings.Compare(string(a), string(b))
}
