package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hasan-mia/techstore-ui/internal/storage"
	"github.com/hasan-mia/techstore-ui/pkg/database"
)

// Store implements storage.KV on the storefront_state table.
type Store struct {
	pool    database.DBTX
	nowFunc func() time.Time
}

// NewStore creates a PostgreSQL-backed store.
func NewStore(pool database.DBTX) *Store {
	return &Store{pool: pool, nowFunc: time.Now}
}

// Get returns the value for key. Rows past their expiry are treated as absent.
func (s *Store) Get(ctx context.Context, key string) (data []byte, err error) {
	query := `
		SELECT value
		FROM storefront_state
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`

	ctx, end := database.TraceQuery(ctx, "GetState", query)
	defer func() { end(err) }()

	err = s.pool.QueryRow(ctx, query, key, s.nowFunc()).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get state: %w", err)
	}
	return data, nil
}

// Set upserts value under key. A zero ttl stores the row without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	query := `
		INSERT INTO storefront_state (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`

	ctx, end := database.TraceQuery(ctx, "SetState", query)
	defer func() { end(err) }()

	now := s.nowFunc()
	var expiresAt *time.Time
	if ttl > 0 {
		t := now.Add(ttl)
		expiresAt = &t
	}

	if _, err = s.pool.Exec(ctx, query, key, value, expiresAt, now); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) (err error) {
	query := `DELETE FROM storefront_state WHERE key = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteState", query)
	defer func() { end(err) }()

	if _, err = s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// DeleteExpired removes rows whose expiry has passed and returns how many
// were deleted.
func (s *Store) DeleteExpired(ctx context.Context) (n int64, err error) {
	query := `DELETE FROM storefront_state WHERE expires_at IS NOT NULL AND expires_at <= $1`

	ctx, end := database.TraceQuery(ctx, "DeleteExpiredState", query)
	defer func() { end(err) }()

	tag, err := s.pool.Exec(ctx, query, s.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("delete expired state: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
