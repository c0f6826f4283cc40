package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autumndb/autumndb/domain/contracts"
)

type fakeStore struct {
	calls int
	byID  map[uuid.UUID]*contracts.Contract
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*contracts.Contract, error) {
	f.calls++
	c, ok := f.byID[id]
	if !ok {
		return nil, assert.AnError
	}
	return c, nil
}

func (f *fakeStore) GetBySlug(ctx context.Context, versionedSlug string) (*contracts.Contract, error) {
	return nil, nil
}

func (f *fakeStore) Upsert(ctx context.Context, c *contracts.Contract) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetByIDCachesAfterFirstRead(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{byID: map[uuid.UUID]*contracts.Contract{id: {ID: id, Slug: "card"}}}
	c := New(store, Config{MaxEntries: 10, TTL: time.Minute}, testLogger())

	_, err := c.GetByID(context.Background(), id)
	require.NoError(t, err)
	_, err = c.GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls)
}

func TestGetByIDReReadsAfterTTLExpires(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{byID: map[uuid.UUID]*contracts.Contract{id: {ID: id, Slug: "card"}}}
	c := New(store, Config{MaxEntries: 10, TTL: time.Millisecond}, testLogger())

	_, err := c.GetByID(context.Background(), id)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = c.GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, 2, store.calls)
}

func TestCacheEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	a, b, evicted := uuid.New(), uuid.New(), uuid.New()
	store := &fakeStore{byID: map[uuid.UUID]*contracts.Contract{
		a: {ID: a, Slug: "a"}, b: {ID: b, Slug: "b"}, evicted: {ID: evicted, Slug: "evicted"},
	}}
	c := New(store, Config{MaxEntries: 2, TTL: time.Minute}, testLogger())

	_, _ = c.GetByID(context.Background(), evicted)
	_, _ = c.GetByID(context.Background(), a)
	_, _ = c.GetByID(context.Background(), b)

	store.calls = 0
	_, _ = c.GetByID(context.Background(), evicted)
	assert.Equal(t, 1, store.calls, "evicted id should have required a re-read")
}

func TestInvalidateForcesReRead(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{byID: map[uuid.UUID]*contracts.Contract{id: {ID: id, Slug: "card"}}}
	c := New(store, Config{MaxEntries: 10, TTL: time.Minute}, testLogger())

	_, _ = c.GetByID(context.Background(), id)
	c.Invalidate(id)
	store.calls = 0
	_, _ = c.GetByID(context.Background(), id)

	assert.Equal(t, 1, store.calls)
}
