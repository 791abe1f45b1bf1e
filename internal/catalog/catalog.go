// Package catalog keeps live views of the category and item collections in
// sync with the remote store and runs the operator creation flows that write
// back to it.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tanhuynh200412/catalog-admin/internal/model"
	"github.com/tanhuynh200412/catalog-admin/internal/store"
)

// Collection names used by the presentation layer.
const (
	CollectionCategories = "categories"
	CollectionItems      = "items"
)

// Default store namespaces.
const (
	DefaultCategoryNamespace = "Category"
	DefaultItemNamespace     = "Items"
)

// Options configures a Catalog.
type Options struct {
	CategoryNamespace string
	ItemNamespace     string
}

type session struct {
	categories *Flow[CategoryDraft]
	items      *Flow[ItemDraft]
}

// Catalog owns both collections and the per-operator creation flows.
type Catalog struct {
	store      store.Store
	logger     *zap.Logger
	dispatcher *Dispatcher
	categories *Collection[model.Category]
	items      *Collection[model.Item]

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Catalog over s. Empty namespaces fall back to the defaults.
func New(s store.Store, opts Options, logger *zap.Logger) *Catalog {
	if opts.CategoryNamespace == "" {
		opts.CategoryNamespace = DefaultCategoryNamespace
	}
	if opts.ItemNamespace == "" {
		opts.ItemNamespace = DefaultItemNamespace
	}

	d := NewDispatcher(s, logger)

	return &Catalog{
		store:      s,
		logger:     logger,
		dispatcher: d,
		categories: NewCollection[model.Category](CollectionCategories, opts.CategoryNamespace, d, logger),
		items:      NewCollection[model.Item](CollectionItems, opts.ItemNamespace, d, logger),
		sessions:   make(map[string]*session),
	}
}

// Run keeps both live views in sync until ctx is done.
func (c *Catalog) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.categories.Run(ctx, c.store) })
	g.Go(func() error { return c.items.Run(ctx, c.store) })
	return g.Wait()
}

// Categories returns the category collection.
func (c *Catalog) Categories() *Collection[model.Category] { return c.categories }

// Items returns the item collection.
func (c *Catalog) Items() *Collection[model.Item] { return c.items }

// Ready reports whether both live views have received their first snapshot.
func (c *Catalog) Ready() bool {
	return !c.categories.View().Loading() && !c.items.View().Loading()
}

// OnChange registers fn on both collections.
func (c *Catalog) OnChange(fn ChangeFunc) {
	c.categories.OnChange(fn)
	c.items.OnChange(fn)
}

// Collection looks up a collection by presentation name.
func (c *Catalog) Collection(name string) (Listing, error) {
	switch name {
	case CollectionCategories:
		return c.categories, nil
	case CollectionItems:
		return c.items, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
}

// Editor returns the creation flow of operator for the named collection.
// Flows are created on first use and live as long as the Catalog.
func (c *Catalog) Editor(operator, name string) (Editor, error) {
	switch name {
	case CollectionCategories:
		return c.session(operator).categories, nil
	case CollectionItems:
		return c.session(operator).items, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
}

func (c *Catalog) session(operator string) *session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[operator]; ok {
		return s
	}

	s := &session{
		categories: NewFlow(FlowConfig[CategoryDraft]{
			Collection: CollectionCategories,
			Namespace:  c.categories.Namespace(),
			Ready:      c.categories.View().Usable,
			Start: func() CategoryDraft {
				return NewCategoryDraft(NextID(c.categories.View().Records()))
			},
			Validate: func(d CategoryDraft) (any, error) {
				record, err := ValidateCategory(d)
				if err != nil {
					return nil, err
				}
				return record, nil
			},
			Dispatcher: c.dispatcher,
		}),
		items: NewFlow(FlowConfig[ItemDraft]{
			Collection: CollectionItems,
			Namespace:  c.items.Namespace(),
			Ready:      c.items.View().Usable,
			Start: func() ItemDraft {
				return NewItemDraft(NextID(c.items.View().Records()))
			},
			Validate: func(d ItemDraft) (any, error) {
				record, err := ValidateItem(d, c.categories.View().Records())
				if err != nil {
					return nil, err
				}
				return record, nil
			},
			Dispatcher: c.dispatcher,
		}),
	}
	c.sessions[operator] = s
	c.logger.Debug("operator session created", zap.String("operator", operator))

	return s
}
