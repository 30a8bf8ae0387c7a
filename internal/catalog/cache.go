package catalog

import (
	"context"
	"log/slog"

	"github.com/hasan-mia/techstore-ui/internal/domain"
	"github.com/hasan-mia/techstore-ui/internal/storage"
)

// CachedProvider serves products from a shared cache and falls back to the
// wrapped provider on a miss. Cache failures never fail a lookup.
type CachedProvider struct {
	next   Provider
	cache  *storage.Adapter
	logger *slog.Logger
}

// NewCachedProvider wraps next with cache. The adapter's TTL is the stale time
// of a cached product.
func NewCachedProvider(next Provider, cache *storage.Adapter, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, logger: logger}
}

// ProductKey returns the cache key of a product.
func ProductKey(id string) string { return "product:" + id }

// GetProduct returns the cached product or fetches and caches it.
func (c *CachedProvider) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var cached domain.Product
	hit, err := c.cache.Load(ctx, ProductKey(id), &cached)
	if err != nil {
		c.logger.WarnContext(ctx, "product cache read failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
	if hit {
		return &cached, nil
	}

	p, err := c.next.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Save(ctx, ProductKey(id), p); err != nil {
		c.logger.WarnContext(ctx, "product cache write failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
	return p, nil
}

// Invalidate drops the cached copy of id.
func (c *CachedProvider) Invalidate(ctx context.Context, id string) error {
	return c.cache.Remove(ctx, ProductKey(id))
}
