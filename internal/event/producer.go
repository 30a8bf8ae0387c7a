package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hasan-mia/techstore-ui/internal/domain"
	pkgkafka "github.com/hasan-mia/techstore-ui/pkg/kafka"
	"github.com/hasan-mia/techstore-ui/pkg/logger"
)

// Topics published by the storefront.
var (
	TopicCartUpdated     = pkgkafka.Topic("cart", "updated")
	TopicCartCleared     = pkgkafka.Topic("cart", "cleared")
	TopicWishlistUpdated = pkgkafka.Topic("wishlist", "updated")
	TopicSessionPurged   = pkgkafka.Topic("session", "purged")
)

const (
	aggregateCart     = "cart"
	aggregateWishlist = "wishlist"
	aggregateSession  = "session"

	source = "storefront"
)

// CartUpdatedData is the payload of a cart.updated event.
type CartUpdatedData struct {
	SessionID string         `json:"session_id"`
	Items     []CartItemData `json:"items"`
	ItemCount int            `json:"item_count"`
	Total     int64          `json:"total"`
}

// CartItemData is one line of a cart.updated payload.
type CartItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// WishlistUpdatedData is the payload of a wishlist.updated event.
type WishlistUpdatedData struct {
	SessionID  string   `json:"session_id"`
	ProductIDs []string `json:"product_ids"`
	Count      int      `json:"count"`
}

// SessionData is the payload of cart.cleared and session.purged events.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// publisher is satisfied by *pkgkafka.Producer.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront state changes.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a producer over kafka.
func NewProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishCartUpdated announces the current contents of a session cart.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID string, cart *domain.Cart) error {
	lines := cart.Lines()
	items := make([]CartItemData, len(lines))
	for i, l := range lines {
		items[i] = CartItemData{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}

	return p.publish(ctx, TopicCartUpdated, "cart.updated", sessionID, aggregateCart, CartUpdatedData{
		SessionID: sessionID,
		Items:     items,
		ItemCount: cart.Count(),
		Total:     cart.Total(),
	})
}

// PublishCartCleared announces that a session cart was emptied.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	return p.publish(ctx, TopicCartCleared, "cart.cleared", sessionID, aggregateCart, SessionData{SessionID: sessionID})
}

// PublishWishlistUpdated announces the current wishlist of a session.
func (p *Producer) PublishWishlistUpdated(ctx context.Context, sessionID string, wishlist *domain.Wishlist) error {
	return p.publish(ctx, TopicWishlistUpdated, "wishlist.updated", sessionID, aggregateWishlist, WishlistUpdatedData{
		SessionID:  sessionID,
		ProductIDs: wishlist.IDs(),
		Count:      wishlist.Count(),
	})
}

// PublishSessionPurged announces that all state of a session was dropped.
func (p *Producer) PublishSessionPurged(ctx context.Context, sessionID string) error {
	return p.publish(ctx, TopicSessionPurged, "session.purged", sessionID, aggregateSession, SessionData{SessionID: sessionID})
}

func (p *Producer) publish(ctx context.Context, topic, eventType, sessionID, aggregate string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, sessionID, aggregate, source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	evt.WithMetadata("session_kind", sessionKind(sessionID))

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("session_id", sessionID),
	)
	return nil
}

// sessionKind is the prefix of a session id: "user" or "guest".
func sessionKind(sessionID string) string {
	if kind, _, ok := strings.Cut(sessionID, ":"); ok {
		return kind
	}
	return "unknown"
}

// Nop discards every event. It stands in for Producer when no brokers are
// configured.
type Nop struct{}

func (Nop) PublishCartUpdated(context.Context, string, *domain.Cart) error         { return nil }
func (Nop) PublishCartCleared(context.Context, string) error                       { return nil }
func (Nop) PublishWishlistUpdated(context.Context, string, *domain.Wishlist) error { return nil }
func (Nop) PublishSessionPurged(context.Context, string) error                     { return nil }
