// Package session hosts the cart and wishlist engines of one shopper session
// and keeps them in sync with persistent storage.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hasan-mia/techstore-ui/internal/domain"
	"github.com/hasan-mia/techstore-ui/internal/storage"
	apperrors "github.com/hasan-mia/techstore-ui/pkg/errors"
)

const tracerName = "github.com/hasan-mia/techstore-ui/internal/session"

// Publisher receives state change notifications. Implemented by
// *event.Producer and event.Nop.
type Publisher interface {
	PublishCartUpdated(ctx context.Context, sessionID string, cart *domain.Cart) error
	PublishCartCleared(ctx context.Context, sessionID string) error
	PublishWishlistUpdated(ctx context.Context, sessionID string, wishlist *domain.Wishlist) error
	PublishSessionPurged(ctx context.Context, sessionID string) error
}

// CartKey returns the storage key of a session cart.
func CartKey(sessionID string) string { return "cart:" + sessionID }

// WishlistKey returns the storage key of a session wishlist.
func WishlistKey(sessionID string) string { return "wishlist:" + sessionID }

// Provider opens sessions. It is created once at startup and shared.
type Provider struct {
	store  *storage.Adapter
	events Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewProvider creates a provider persisting through store.
func NewProvider(store *storage.Adapter, events Publisher, logger *slog.Logger) *Provider {
	return &Provider{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock handed to every cart the provider opens.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

// Open loads the cart and wishlist of sessionID. Missing or corrupt state
// yields empty engines; only storage failures are returned.
func (p *Provider) Open(ctx context.Context, sessionID string) (s *Session, err error) {
	ctx, end := p.startSpan(ctx, "Open", sessionID)
	defer func() { end(err) }()

	var lines []domain.CartLine
	found, err := p.store.Load(ctx, CartKey(sessionID), &lines)
	if err != nil {
		return nil, apperrors.Wrap(err, "hydrate cart")
	}
	if !found {
		lines = nil
	}

	var ids []string
	found, err = p.store.Load(ctx, WishlistKey(sessionID), &ids)
	if err != nil {
		return nil, apperrors.Wrap(err, "hydrate wishlist")
	}
	if !found {
		ids = nil
	}

	return &Session{
		id:       sessionID,
		provider: p,
		cart:     domain.RestoreCart(lines).WithClock(p.now),
		wishlist: domain.RestoreWishlist(ids),
	}, nil
}

// Purge drops both stored entries of sessionID.
func (p *Provider) Purge(ctx context.Context, sessionID string) (err error) {
	ctx, end := p.startSpan(ctx, "Purge", sessionID)
	defer func() { end(err) }()

	if err := p.store.Remove(ctx, CartKey(sessionID)); err != nil {
		recordMutation(engineSession, "purge", resultError)
		return fmt.Errorf("purge cart: %w", err)
	}
	if err := p.store.Remove(ctx, WishlistKey(sessionID)); err != nil {
		recordMutation(engineSession, "purge", resultError)
		return fmt.Errorf("purge wishlist: %w", err)
	}
	recordMutation(engineSession, "purge", resultApplied)

	if err := p.events.PublishSessionPurged(ctx, sessionID); err != nil {
		p.logPublishFailure(ctx, "session.purged", sessionID, err)
	}
	p.logger.InfoContext(ctx, "session state purged", slog.String("session_id", sessionID))
	return nil
}

// Ping reports whether the storage backend is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	return p.store.Ping(ctx)
}

func (p *Provider) startSpan(ctx context.Context, op, sessionID string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "session."+op,
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (p *Provider) logPublishFailure(ctx context.Context, eventType, sessionID string, err error) {
	p.logger.ErrorContext(ctx, "failed to publish event",
		slog.String("event_type", eventType),
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
	)
}
