package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/tanhuynh200412/catalog-admin/internal/model"
	"github.com/tanhuynh200412/catalog-admin/internal/store"
)

// Dispatcher issues writes and deletes to the store. It never touches a
// live view: the outcome of a mutation becomes visible only when the store
// echoes it back through the subscription.
type Dispatcher struct {
	store  store.Store
	logger *zap.Logger
}

// NewDispatcher creates a new Dispatcher instance.
func NewDispatcher(s store.Store, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:  s,
		logger: logger,
	}
}

// Create writes the full record at key. Failures are returned as *WriteError.
func (d *Dispatcher) Create(ctx context.Context, namespace string, key model.Key, record any) error {
	if err := d.store.Write(ctx, namespace, key.String(), record); err != nil {
		mutationsTotal.WithLabelValues(namespace, "write", outcomeFailure).Inc()
		d.logger.Error("record write failed",
			zap.String("namespace", namespace),
			zap.String("key", key.String()),
			zap.Error(err),
		)
		return &WriteError{Namespace: namespace, Key: key, Err: err}
	}

	mutationsTotal.WithLabelValues(namespace, "write", outcomeSuccess).Inc()
	d.logger.Info("record written",
		zap.String("namespace", namespace),
		zap.String("key", key.String()),
	)
	return nil
}

// Delete removes key. Failures are returned as *DeleteError.
func (d *Dispatcher) Delete(ctx context.Context, namespace string, key model.Key) error {
	if err := d.store.Delete(ctx, namespace, key.String()); err != nil {
		mutationsTotal.WithLabelValues(namespace, "delete", outcomeFailure).Inc()
		d.logger.Error("record delete failed",
			zap.String("namespace", namespace),
			zap.String("key", key.String()),
			zap.Error(err),
		)
		return &DeleteError{Namespace: namespace, Key: key, Err: err}
	}

	mutationsTotal.WithLabelValues(namespace, "delete", outcomeSuccess).Inc()
	d.logger.Info("record deleted",
		zap.String("namespace", namespace),
		zap.String("key", key.String()),
	)
	return nil
}
