package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
)

var errBackendDown = errors.New("backend down")

// brokenStore fails every call, like an unreachable cache.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (engine.Draft, error) {
	return engine.Draft{}, errBackendDown
}
func (brokenStore) Create(context.Context, engine.Draft, time.Duration) error { return errBackendDown }
func (brokenStore) Save(context.Context, engine.Draft, int64, time.Duration) error {
	return errBackendDown
}
func (brokenStore) Put(context.Context, engine.Draft, time.Duration) error { return errBackendDown }
func (brokenStore) PutIfNewer(context.Context, engine.Draft, time.Duration) (bool, error) {
	return false, errBackendDown
}
func (brokenStore) Delete(context.Context, string) error { return errBackendDown }

// stallingStore holds its first Get after reading, until release is closed.
type stallingStore struct {
	*Memory
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func newStallingStore(m *Memory) *stallingStore {
	return &stallingStore{Memory: m, reached: make(chan struct{}), release: make(chan struct{})}
}

func (s *stallingStore) Get(ctx context.Context, id string) (engine.Draft, error) {
	d, err := s.Memory.Get(ctx, id)
	s.once.Do(func() {
		close(s.reached)
		<-s.release
	})
	return d, err
}

func newTiered(clock *fakeClock, ttl time.Duration, tiers ...Store) *Tiered {
	t := NewTiered(zap.NewNop(), ttl, tiers...)
	t.now = clock.Now
	return t
}

func TestTiered_BackfillsFasterTiers(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cache := NewMemory(WithClock(clock.Now))
	durable := NewMemory(WithClock(clock.Now))
	tiered := newTiered(clock, time.Hour, cache, durable)

	d := sampleDraft("ABC123", clock.Now())
	require.NoError(t, durable.Create(ctx, d, time.Hour))

	_, err := cache.Get(ctx, "ABC123")
	require.ErrorIs(t, err, ErrNotFound)

	clock.Advance(10 * time.Minute)
	got, err := tiered.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	_, err = cache.Get(ctx, "ABC123")
	require.NoError(t, err, "hit on durable tier backfills the cache")

	// The backfilled copy only lives as long as the durable one.
	clock.Advance(50 * time.Minute)
	_, err = cache.Get(ctx, "ABC123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTiered_SlowReadDoesNotRevertCommittedSave(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cache := NewMemory(WithClock(clock.Now))
	durable := newStallingStore(NewMemory(WithClock(clock.Now)))
	tiered := newTiered(clock, time.Hour, cache, durable)

	d := sampleDraft("ABC123", clock.Now())
	require.NoError(t, durable.Create(ctx, d, time.Hour))

	type read struct {
		d   engine.Draft
		err error
	}
	slow := make(chan read, 1)
	go func() {
		got, err := tiered.Get(ctx, "ABC123")
		slow <- read{got, err}
	}()
	<-durable.reached

	next := d
	next.Version = 1
	require.NoError(t, tiered.Save(ctx, next, 0, time.Hour))
	close(durable.release)

	r := <-slow
	require.NoError(t, r.err)
	assert.Equal(t, int64(0), r.d.Version, "the slow read saw the old copy")

	cached, err := cache.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.Version, "backfill kept the committed copy")

	got, err := tiered.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestTiered_CreateAndSaveWriteThrough(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cache := NewMemory(WithClock(clock.Now))
	durable := NewMemory(WithClock(clock.Now))
	tiered := newTiered(clock, time.Hour, cache, durable)

	d := sampleDraft("ABC123", clock.Now())
	require.NoError(t, tiered.Create(ctx, d, time.Hour))
	assert.ErrorIs(t, tiered.Create(ctx, d, time.Hour), ErrExists)

	next := d
	next.Version = 1
	require.NoError(t, tiered.Save(ctx, next, 0, time.Hour))

	for name, s := range map[string]Store{"cache": cache, "durable": durable} {
		got, err := s.Get(ctx, "ABC123")
		require.NoError(t, err, name)
		assert.Equal(t, int64(1), got.Version, name)
	}
}

func TestTiered_ConflictInvalidatesStaleCache(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cache := NewMemory(WithClock(clock.Now))
	durable := NewMemory(WithClock(clock.Now))
	tiered := newTiered(clock, time.Hour, cache, durable)

	d := sampleDraft("ABC123", clock.Now())
	require.NoError(t, tiered.Create(ctx, d, time.Hour))

	// Another process moves the durable copy ahead without touching our cache.
	ahead := d
	ahead.Version = 1
	require.NoError(t, durable.Save(ctx, ahead, 0, time.Hour))

	stale, err := tiered.Get(ctx, "ABC123")
	require.NoError(t, err)
	require.Equal(t, int64(0), stale.Version, "cache serves the stale copy")

	attempt := stale
	attempt.Version = 1
	require.ErrorIs(t, tiered.Save(ctx, attempt, stale.Version, time.Hour), ErrConflict)

	fresh, err := tiered.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.Version, "retry reads the authoritative copy")
}

func TestTiered_BrokenCacheDoesNotFailRequests(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	durable := NewMemory(WithClock(clock.Now))
	tiered := newTiered(clock, time.Hour, brokenStore{}, durable)

	d := sampleDraft("ABC123", clock.Now())
	require.NoError(t, tiered.Create(ctx, d, time.Hour))

	got, err := tiered.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", got.ID)
}

func TestTiered_BrokenPrimarySurfaces(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tiered := newTiered(clock, time.Hour, NewMemory(WithClock(clock.Now)), brokenStore{})

	_, err := tiered.Get(ctx, "ABC123")
	assert.ErrorIs(t, err, errBackendDown)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, tiered.Create(ctx, sampleDraft("ABC123", clock.Now()), time.Hour), errBackendDown)
}

func TestTiered_ExpiryThroughAllTiers(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cache := NewMemory(WithClock(clock.Now))
	durable := NewMemory(WithClock(clock.Now))
	tiered := newTiered(clock, time.Hour, cache, durable)

	require.NoError(t, tiered.Create(ctx, sampleDraft("ABC123", clock.Now()), time.Hour))

	clock.Advance(time.Hour)
	_, err := tiered.Get(ctx, "ABC123")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := tiered.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "reads already evicted both copies")
}
