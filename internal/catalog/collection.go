package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tanhuynh200412/catalog-admin/internal/model"
	"github.com/tanhuynh200412/catalog-admin/internal/store"
)

// ViewState is a point-in-time read of a collection's live view.
type ViewState struct {
	Collection string `json:"collection"`
	Records    any    `json:"records"`
	Loading    bool   `json:"loading"`
	Error      string `json:"error,omitempty"`
	Version    uint64 `json:"version"`
}

// ChangeFunc is called after every snapshot applied to a live view. It runs
// on the sync goroutine and must not block.
type ChangeFunc func(ViewState)

// Listing is the read and delete surface of a collection.
type Listing interface {
	Name() string
	State() ViewState
	RequestDelete(ctx context.Context, key model.Key, confirmed bool) error
}

// Collection binds one store namespace to its live view.
type Collection[R Record[R]] struct {
	name       string
	namespace  string
	view       *LiveView[R]
	dispatcher *Dispatcher
	logger     *zap.Logger

	mu        sync.RWMutex
	listeners []ChangeFunc
}

// NewCollection creates a collection for namespace, presented under name.
func NewCollection[R Record[R]](name, namespace string, d *Dispatcher, logger *zap.Logger) *Collection[R] {
	return &Collection[R]{
		name:       name,
		namespace:  namespace,
		view:       NewLiveView[R](),
		dispatcher: d,
		logger:     logger.With(zap.String("collection", name)),
	}
}

// Name returns the presentation name of the collection.
func (c *Collection[R]) Name() string { return c.name }

// Namespace returns the store namespace backing the collection.
func (c *Collection[R]) Namespace() string { return c.namespace }

// View returns the live view.
func (c *Collection[R]) View() *LiveView[R] { return c.view }

// State returns the current view contents.
func (c *Collection[R]) State() ViewState {
	state := ViewState{
		Collection: c.name,
		Records:    c.view.Records(),
		Loading:    c.view.Loading(),
		Version:    c.view.Version(),
	}
	if err := c.view.Err(); err != nil {
		state.Error = err.Error()
	}
	return state
}

// OnChange registers fn to be called after every applied snapshot.
func (c *Collection[R]) OnChange(fn ChangeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Run subscribes to the namespace and applies every delivered snapshot until
// ctx is done. It is the only writer of the live view.
func (c *Collection[R]) Run(ctx context.Context, s store.Store) error {
	snapshots, err := s.Subscribe(ctx, c.namespace)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.namespace, err)
	}

	c.logger.Info("live view subscribed", zap.String("namespace", c.namespace))

	for snap := range snapshots {
		c.apply(snap)
	}

	c.logger.Info("live view unsubscribed", zap.String("namespace", c.namespace))
	return nil
}

func (c *Collection[R]) apply(snap store.Snapshot) {
	records, err := Normalize[R](snap)
	if err != nil {
		var readErr *SnapshotReadError
		if errors.As(err, &readErr) {
			readErr.Namespace = c.namespace
		}
		c.view.Fail(err)
		snapshotReadErrors.WithLabelValues(c.name).Inc()
		c.logger.Warn("snapshot rejected", zap.Error(err))
	} else {
		c.view.Replace(records)
		snapshotsApplied.WithLabelValues(c.name).Inc()
		c.logger.Debug("snapshot applied", zap.Int("records", len(records)))
	}
	liveViewRecords.WithLabelValues(c.name).Set(float64(len(c.view.Records())))

	c.mu.RLock()
	listeners := c.listeners
	c.mu.RUnlock()

	if len(listeners) == 0 {
		return
	}
	state := c.State()
	for _, fn := range listeners {
		fn(state)
	}
}

// RequestDelete removes key from the store once the operator confirmed it.
// The live view is left untouched until the store echoes the removal.
func (c *Collection[R]) RequestDelete(ctx context.Context, key model.Key, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	return c.dispatcher.Delete(ctx, c.namespace, key)
}
