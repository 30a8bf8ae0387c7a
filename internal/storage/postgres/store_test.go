package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasan-mia/techstore-ui/internal/storage"
	"github.com/hasan-mia/techstore-ui/pkg/database"
)

var fixedNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := NewStore(mock)
	s.nowFunc = func() time.Time { return fixedNow }
	return s, mock
}

func TestStore_Get(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery("SELECT value FROM storefront_state").
		WithArgs("cart:guest:abc", fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`[]`)))

	data, err := s.Get(context.Background(), "cart:guest:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_NotFound(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery("SELECT value FROM storefront_state").
		WithArgs("cart:missing", fixedNow).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "cart:missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_DatabaseError(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectQuery("SELECT value FROM storefront_state").
		WithArgs("cart:x", fixedNow).
		WillReturnError(errors.New("connection reset"))

	_, err := s.Get(context.Background(), "cart:x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "get state")
}

func TestStore_Set_WithTTL(t *testing.T) {
	s, mock := setupStore(t)

	expires := fixedNow.Add(time.Hour)
	mock.ExpectExec("INSERT INTO storefront_state").
		WithArgs("wishlist:user:1", []byte(`["p1"]`), &expires, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Set(context.Background(), "wishlist:user:1", []byte(`["p1"]`), time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Set_NoTTL(t *testing.T) {
	s, mock := setupStore(t)

	var noExpiry *time.Time
	mock.ExpectExec("INSERT INTO storefront_state").
		WithArgs("cart:user:1", []byte(`[]`), noExpiry, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Set(context.Background(), "cart:user:1", []byte(`[]`), 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Delete(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectExec("DELETE FROM storefront_state WHERE key").
		WithArgs("cart:user:1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.Delete(context.Background(), "cart:user:1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteExpired(t *testing.T) {
	s, mock := setupStore(t)

	mock.ExpectExec("DELETE FROM storefront_state WHERE expires_at").
		WithArgs(fixedNow).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Ping(t *testing.T) {
	s, mock := setupStore(t)
	mock.ExpectPing()

	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
