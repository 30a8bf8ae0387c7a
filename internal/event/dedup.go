package event

import (
	"context"
	"errors"
	"time"

	"github.com/hasan-mia/techstore-ui/internal/storage"
)

// DedupStore records processed event ids in a storage.KV under
// "event:<id>". It implements pkgkafka.IdempotencyStore.
type DedupStore struct {
	kv  storage.KV
	ttl time.Duration
}

// NewDedupStore creates a store whose entries expire after ttl.
func NewDedupStore(kv storage.KV, ttl time.Duration) *DedupStore {
	return &DedupStore{kv: kv, ttl: ttl}
}

func (s *DedupStore) Contains(ctx context.Context, eventID string) (bool, error) {
	_, err := s.kv.Get(ctx, dedupKey(eventID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *DedupStore) Add(ctx context.Context, eventID string) error {
	return s.kv.Set(ctx, dedupKey(eventID), []byte("1"), s.ttl)
}

func dedupKey(eventID string) string {
	return "event:" + eventID
}
