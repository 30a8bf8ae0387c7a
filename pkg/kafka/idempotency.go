package kafka

import (
	"context"
	"log/slog"
)

// IdempotencyStore remembers processed event ids. Implementations must be
// safe for concurrent use.
type IdempotencyStore interface {
	Contains(ctx context.Context, eventID string) (bool, error)
	Add(ctx context.Context, eventID string) error
}

// IdempotentHandler wraps inner so that redelivered events are acknowledged
// without running inner again. Events without an id are always handled.
//
// The id is recorded after inner succeeds, so a crash in between yields one
// extra delivery rather than a lost event. A failing store degrades to
// at-least-once handling.
func IdempotentHandler(store IdempotencyStore, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		if event.EventID == "" {
			return inner(ctx, event)
		}
		log := logger.With(
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
		)

		switch seen, err := store.Contains(ctx, event.EventID); {
		case err != nil:
			log.WarnContext(ctx, "idempotency lookup failed, handling event anyway", slog.String("error", err.Error()))
		case seen:
			duplicatesSkipped.WithLabelValues(event.EventType).Inc()
			log.DebugContext(ctx, "duplicate event skipped")
			return nil
		}

		if err := inner(ctx, event); err != nil {
			return err
		}

		if err := store.Add(ctx, event.EventID); err != nil {
			log.WarnContext(ctx, "failed to record processed event", slog.String("error", err.Error()))
		}
		return nil
	}
}
