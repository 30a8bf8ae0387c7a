package catalog

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/hasan-mia/techstore-ui/pkg/kafka"
)

// Catalog event types that make a cached product stale.
const (
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// InvalidationHandler evicts the cached product named by each
// product.updated or product.deleted event. Other events are ignored.
func InvalidationHandler(cache *CachedProvider, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, event *pkgkafka.Event) error {
		switch event.EventType {
		case EventProductUpdated, EventProductDeleted:
		default:
			return nil
		}
		if event.AggregateID == "" {
			logger.WarnContext(ctx, "catalog event without product id", slog.String("event_id", event.EventID))
			return nil
		}

		if err := cache.Invalidate(ctx, event.AggregateID); err != nil {
			return fmt.Errorf("invalidate product %s: %w", event.AggregateID, err)
		}
		logger.DebugContext(ctx, "product cache invalidated",
			slog.String("product_id", event.AggregateID),
			slog.String("event_type", event.EventType),
		)
		return nil
	}
}
