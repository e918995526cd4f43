package memory

import (
	"context"
	"sync"

	"camptrade/internal/app/storage"
)

// storage.CatalogStore interface implementation
var _ storage.CatalogStore = (*Catalog)(nil)

// Catalog is an in-process listing store keyed by namespace and item id.
type Catalog struct {
	mu       sync.RWMutex
	listings map[string]map[string]struct{}
}

func NewCatalog() *Catalog {
	return &Catalog{listings: make(map[string]map[string]struct{})}
}

func (c *Catalog) Put(namespace string, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns, ok := c.listings[namespace]
	if !ok {
		ns = make(map[string]struct{})
		c.listings[namespace] = ns
	}
	ns[itemID] = struct{}{}
}

func (c *Catalog) Has(namespace string, itemID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.listings[namespace][itemID]
	return ok
}

// DeleteListing implementation of interface storage.CatalogStore
func (c *Catalog) DeleteListing(_ context.Context, namespace string, itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.listings[namespace], itemID)
	return nil
}
