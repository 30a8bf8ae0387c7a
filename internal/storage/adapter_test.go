package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hasan-mia/techstore-ui/internal/storage"
	"github.com/hasan-mia/techstore-ui/internal/storage/memory"
)

type mockKV struct {
	mock.Mock
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockKV) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockKV) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type line struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

func TestAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	a := storage.NewAdapter(memory.NewStore(), 0, testLogger())

	want := []line{{ID: "p1-1", Quantity: 2}, {ID: "p2-1", Quantity: 1}}
	require.NoError(t, a.Save(ctx, "cart:guest:1", want))

	var got []line
	ok, err := a.Load(ctx, "cart:guest:1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestAdapter_LoadMissing(t *testing.T) {
	a := storage.NewAdapter(memory.NewStore(), 0, testLogger())

	var got []line
	ok, err := a.Load(context.Background(), "cart:nobody", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestAdapter_LoadCorruptClearsEntry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, "cart:guest:1", []byte("{not json"), 0))

	a := storage.NewAdapter(store, 0, testLogger())

	var got []line
	ok, err := a.Load(ctx, "cart:guest:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, "cart:guest:1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "corrupt entry should be removed")
}

func TestAdapter_LoadWrongShapeClearsEntry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, "wishlist:guest:1", []byte(`{"ids":"p1"}`), 0))

	a := storage.NewAdapter(store, 0, testLogger())

	var got []string
	ok, err := a.Load(ctx, "wishlist:guest:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestAdapter_LoadPartiallyValidArrayLeavesDestinationUntouched(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Set(ctx, "cart:guest:1",
		[]byte(`[{"id":"p1-1","quantity":2},{"id":"p2-1","quantity":"x"}]`), 0))

	a := storage.NewAdapter(store, 0, testLogger())

	var got []line
	ok, err := a.Load(ctx, "cart:guest:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got, "elements decoded before the bad one must not leak")

	_, err = store.Get(ctx, "cart:guest:1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	prior := []string{"kept"}
	require.NoError(t, store.Set(ctx, "wishlist:guest:1", []byte(`["w1",5]`), 0))
	ok, err = a.Load(ctx, "wishlist:guest:1", &prior)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"kept"}, prior)
}

func TestAdapter_LoadRejectsNonPointer(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Set(context.Background(), "cart:guest:1", []byte(`[]`), 0))
	a := storage.NewAdapter(store, 0, testLogger())

	var got []line
	_, err := a.Load(context.Background(), "cart:guest:1", got)
	require.Error(t, err)
}

func TestAdapter_Remove(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	a := storage.NewAdapter(store, 0, testLogger())

	require.NoError(t, a.Save(ctx, "wishlist:guest:1", []string{"p1"}))
	require.NoError(t, a.Remove(ctx, "wishlist:guest:1"))
	require.NoError(t, a.Remove(ctx, "wishlist:guest:1"))
	assert.Equal(t, 0, store.Len())
}

func TestAdapter_SavePassesTTL(t *testing.T) {
	kv := new(mockKV)
	kv.On("Set", mock.Anything, "cart:guest:1", []byte(`[]`), 30*time.Minute).Return(nil)

	a := storage.NewAdapter(kv, 30*time.Minute, testLogger())
	require.NoError(t, a.Save(context.Background(), "cart:guest:1", []line{}))
	kv.AssertExpectations(t)
}

func TestAdapter_BackendErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")

	kv := new(mockKV)
	kv.On("Get", mock.Anything, "cart:guest:1").Return(nil, boom)
	kv.On("Set", mock.Anything, "cart:guest:1", mock.Anything, time.Duration(0)).Return(boom)
	kv.On("Delete", mock.Anything, "cart:guest:1").Return(boom)

	a := storage.NewAdapter(kv, 0, testLogger())

	var got []line
	_, err := a.Load(ctx, "cart:guest:1", &got)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, a.Save(ctx, "cart:guest:1", []line{}), boom)
	assert.ErrorIs(t, a.Remove(ctx, "cart:guest:1"), boom)
}

func TestAdapter_NopBackend(t *testing.T) {
	ctx := context.Background()
	a := storage.NewAdapter(storage.Nop{}, 0, testLogger())

	require.NoError(t, a.Save(ctx, "cart:guest:1", []line{{ID: "p1-1", Quantity: 1}}))

	var got []line
	ok, err := a.Load(ctx, "cart:guest:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, a.Remove(ctx, "cart:guest:1"))
	assert.NoError(t, a.Ping(ctx))
}
