package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tanhuynh200412/catalog-admin/internal/model"
)

// Sentinel errors returned by drafts, flows and collections.
var (
	ErrUnknownField         = errors.New("unknown draft field")
	ErrReadOnlyField        = errors.New("draft field is read-only")
	ErrInvalidFieldValue    = errors.New("invalid draft field value")
	ErrNoDraft              = errors.New("no draft in progress")
	ErrSubmitInFlight       = errors.New("a submission is already in flight")
	ErrConfirmationRequired = errors.New("delete requires operator confirmation")
	ErrUnknownCollection    = errors.New("unknown collection")
	ErrViewLoading          = errors.New("collection is still loading")
	ErrViewUnavailable      = errors.New("collection snapshot could not be read")
)

// SnapshotReadError reports a snapshot entry that could not be decoded.
type SnapshotReadError struct {
	Namespace string
	Key       string
	Err       error
}

func (e *SnapshotReadError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("read snapshot entry %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("read snapshot %s entry %q: %v", e.Namespace, e.Key, e.Err)
}

func (e *SnapshotReadError) Unwrap() error { return e.Err }

// ValidationError lists the draft fields that failed validation, keyed by
// their wire name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ReferentialError reports an item draft pointing at a category that is not
// in the current category view.
type ReferentialError struct {
	CategoryID int
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("category %d does not exist", e.CategoryID)
}

// WriteError wraps a failed record write.
type WriteError struct {
	Namespace string
	Key       model.Key
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s/%s: %v", e.Namespace, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// DeleteError wraps a failed delete.
type DeleteError struct {
	Namespace string
	Key       model.Key
	Err       error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s/%s: %v", e.Namespace, e.Key, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }
