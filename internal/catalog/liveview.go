package catalog

import "sync/atomic"

type viewState[T any] struct {
	records []T
	loaded  bool
	readErr error
	version uint64
}

// LiveView holds the most recently applied record list of one collection.
// Every update replaces the whole list; the published slice is never
// modified afterwards, so readers need no lock.
type LiveView[T any] struct {
	state atomic.Pointer[viewState[T]]
}

// NewLiveView creates an empty view in the loading state.
func NewLiveView[T any]() *LiveView[T] {
	v := &LiveView[T]{}
	v.state.Store(&viewState[T]{records: []T{}})
	return v
}

// Records returns the current record list. Callers must not modify it.
func (v *LiveView[T]) Records() []T {
	return v.state.Load().records
}

// Loading reports whether no snapshot has been applied yet.
func (v *LiveView[T]) Loading() bool {
	return !v.state.Load().loaded
}

// Err returns the read error of the last snapshot, if it was rejected.
func (v *LiveView[T]) Err() error {
	return v.state.Load().readErr
}

// Usable returns nil when the view holds a good snapshot. New identifiers
// are only allocated from a usable view.
func (v *LiveView[T]) Usable() error {
	s := v.state.Load()
	switch {
	case !s.loaded:
		return ErrViewLoading
	case s.readErr != nil:
		return ErrViewUnavailable
	default:
		return nil
	}
}

// Version counts applied snapshots.
func (v *LiveView[T]) Version() uint64 {
	return v.state.Load().version
}

// Replace publishes records as the new current list and clears any
// previous read error.
func (v *LiveView[T]) Replace(records []T) {
	if records == nil {
		records = []T{}
	}
	prev := v.state.Load()
	v.state.Store(&viewState[T]{
		records: records,
		loaded:  true,
		version: prev.version + 1,
	})
}

// Fail records a rejected snapshot: the collection is shown as empty and
// err is kept for display until the next good snapshot.
func (v *LiveView[T]) Fail(err error) {
	prev := v.state.Load()
	v.state.Store(&viewState[T]{
		records: []T{},
		loaded:  true,
		readErr: err,
		version: prev.version + 1,
	})
}
