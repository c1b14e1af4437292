package nonce

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(2*time.Minute, 5*time.Minute, zap.NewNop())
}

func TestMemoryStore_IssueAndConsume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Issue(ctx, "198.51.100.7", "Mozilla/5.0")
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, "198.51.100.7", rec.ClientIP)
	assert.Equal(t, "Mozilla/5.0", rec.UserAgent)
	assert.False(t, rec.Consumed)
	assert.True(t, rec.ExpiresAt.After(rec.IssuedAt))

	consumed, err := store.Consume(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, consumed.Consumed)
	assert.Equal(t, rec.ID, consumed.ID)
	assert.Equal(t, rec.ClientIP, consumed.ClientIP)
}

func TestMemoryStore_ConsumeTwiceIsReplay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Issue(ctx, "198.51.100.7", "ua")
	require.NoError(t, err)

	_, err = store.Consume(ctx, rec.ID)
	require.NoError(t, err)

	_, err = store.Consume(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrReplayed)
}

func TestMemoryStore_ConsumeUnknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Consume(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ConsumeExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Issue(ctx, "198.51.100.7", "ua")
	require.NoError(t, err)

	// Jump past the TTL but stay inside the grace window; the failure
	// must be distinguishable from a never-issued nonce.
	store.now = func() time.Time { return rec.ExpiresAt.Add(time.Second) }

	_, err = store.Consume(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrExpired)

	// A second attempt on an expired nonce still reports expiry, not replay.
	_, err = store.Consume(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestMemoryStore_ConcurrentConsumeSingleWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Issue(ctx, "198.51.100.7", "ua")
	require.NoError(t, err)

	const workers = 32
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		replays  int
		failures int
	)

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := store.Consume(ctx, rec.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case err == ErrReplayed:
				replays++
			default:
				failures++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one consumer must win")
	assert.Equal(t, workers-1, replays)
	assert.Zero(t, failures)
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute, zap.NewNop())
	ctx := context.Background()

	expired, err := store.Issue(ctx, "ip", "ua")
	require.NoError(t, err)
	_, err = store.Issue(ctx, "ip", "ua")
	require.NoError(t, err)

	consumed, err := store.Issue(ctx, "ip", "ua")
	require.NoError(t, err)
	_, err = store.Consume(ctx, consumed.ID)
	require.NoError(t, err)

	// Nothing is old enough to drop yet.
	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Past TTL + grace: the expired and consumed records go, the fresh
	// one only if it also aged out. All three share the same issue time,
	// so all three go.
	store.now = func() time.Time { return expired.ExpiresAt.Add(2 * time.Minute) }

	removed, err = store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestMemoryStore_SweepKeepsConsumedInsideGrace(t *testing.T) {
	store := NewMemoryStore(time.Minute, 10*time.Minute, zap.NewNop())
	ctx := context.Background()

	rec, err := store.Issue(ctx, "ip", "ua")
	require.NoError(t, err)
	_, err = store.Consume(ctx, rec.ID)
	require.NoError(t, err)

	// Two minutes in: past TTL but inside the grace window, so the
	// consumed record must survive and still answer replay.
	store.now = func() time.Time { return rec.IssuedAt.Add(2 * time.Minute) }

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = store.Consume(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrReplayed)
}

func TestNewID_UniqueAndOpaque(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id, err := NewID()
		require.NoError(t, err)
		// 16 bytes base64url without padding
		assert.Len(t, id, 22)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate nonce id generated")
		seen[id] = struct{}{}
	}
}
