package catalog

import (
	"fmt"
	"sync"

	"isl-announcer/internal/filesystem"
	"isl-announcer/internal/metrics"
)

// Cache holds the most recent catalog per directory and rebuilds it when the
// directory modification time changes. Adding, removing or renaming a file in
// a flat directory bumps its mtime, so a stale entry is never served for those.
type Cache struct {
	mu       sync.Mutex
	catalogs map[string]*Catalog
}

// NewCache creates an empty catalog cache.
func NewCache() *Cache {
	return &Cache{catalogs: make(map[string]*Catalog)}
}

// Get returns a catalog for dir, rebuilding it if the directory changed.
func (c *Cache) Get(dir string) (*Catalog, error) {
	info, err := filesystem.StatWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		c.Invalidate(dir)
		// Build produces the ErrDirNotFound wrapping
		return c.build(dir)
	}

	c.mu.Lock()
	cached, ok := c.catalogs[dir]
	c.mu.Unlock()

	if ok && cached.modTime.Equal(info.ModTime()) {
		return cached, nil
	}
	return c.build(dir)
}

// Invalidate drops any cached catalog for dir.
func (c *Cache) Invalidate(dir string) {
	c.mu.Lock()
	delete(c.catalogs, dir)
	c.mu.Unlock()
}

func (c *Cache) build(dir string) (*Catalog, error) {
	cat, err := Build(dir)
	if err != nil {
		metrics.CatalogBuildsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("catalog cache: %w", err)
	}
	metrics.CatalogBuildsTotal.WithLabelValues("success").Inc()

	videos, images := cat.Counts()
	metrics.CatalogEntries.WithLabelValues("video").Set(float64(videos))
	metrics.CatalogEntries.WithLabelValues("image").Set(float64(images))

	c.mu.Lock()
	c.catalogs[dir] = cat
	c.mu.Unlock()
	return cat, nil
}
