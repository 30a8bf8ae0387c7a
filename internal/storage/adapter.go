package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var corruptEntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_storage_corrupt_total",
		Help: "Total number of persisted entries discarded because they could not be decoded",
	},
	[]string{"key_kind"},
)

// Adapter stores JSON-encoded values in a KV. Entries that fail to decode are
// deleted on read and reported as absent.
type Adapter struct {
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

// NewAdapter creates an adapter over kv. ttl applies to every Save; zero keeps
// entries forever.
func NewAdapter(kv KV, ttl time.Duration, logger *slog.Logger) *Adapter {
	return &Adapter{kv: kv, ttl: ttl, logger: logger}
}

// Load decodes the value under key into dst, which must be a non-nil pointer.
// It returns false when the key is absent or its content could not be
// decoded; in the latter case the entry is removed and dst is left untouched.
// Only backend failures are returned as errors.
func (a *Adapter) Load(ctx context.Context, key string, dst any) (bool, error) {
	target := reflect.ValueOf(dst)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return false, fmt.Errorf("load %s: destination must be a non-nil pointer, got %T", key, dst)
	}

	data, err := a.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load %s: %w", key, err)
	}

	// json.Unmarshal keeps elements decoded before a type error, so decode
	// into a fresh value and publish it only on success.
	fresh := reflect.New(target.Elem().Type())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		corruptEntriesTotal.WithLabelValues(keyKind(key)).Inc()
		a.logger.WarnContext(ctx, "discarding corrupt persisted state",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		if delErr := a.kv.Delete(ctx, key); delErr != nil {
			return false, fmt.Errorf("remove corrupt %s: %w", key, delErr)
		}
		return false, nil
	}

	target.Elem().Set(fresh.Elem())
	return true, nil
}

// Save encodes v and writes it under key, replacing any prior value.
func (a *Adapter) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := a.kv.Set(ctx, key, data, a.ttl); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Remove deletes key if present.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if err := a.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Ping checks the underlying backend.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.kv.Ping(ctx)
}

// keyKind returns the prefix before the first colon, used as a metric label.
func keyKind(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}
