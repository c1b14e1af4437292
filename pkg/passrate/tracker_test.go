package passrate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_NeutralDefaultForUnseenKey(t *testing.T) {
	tr := New(time.Hour, 4)
	assert.Equal(t, NeutralRate, tr.Rate("ip:203.0.113.9"))
	assert.Equal(t, NeutralRate, tr.Rate(""))
}

func TestTracker_RateArithmetic(t *testing.T) {
	tr := New(time.Hour, 4)
	key := "ip:203.0.113.9"

	tr.RecordOutcome(key, true)
	tr.RecordOutcome(key, true)
	tr.RecordOutcome(key, false)
	tr.RecordOutcome(key, true)

	assert.InDelta(t, 0.75, tr.Rate(key), 1e-9)
}

func TestTracker_RateAlwaysInUnitInterval(t *testing.T) {
	tr := New(time.Hour, 4)
	key := "ua:test-agent"

	for i := 0; i < 500; i++ {
		tr.RecordOutcome(key, i%3 == 0)
		rate := tr.Rate(key)
		assert.GreaterOrEqual(t, rate, 0.0)
		assert.LessOrEqual(t, rate, 1.0)
	}
}

func TestTracker_WindowRolloverDecays(t *testing.T) {
	tr := New(time.Minute, 4)
	key := "ip:203.0.113.9"

	base := time.Now()
	tr.now = func() time.Time { return base }

	// 10/10 successes inside the first window.
	for i := 0; i < 10; i++ {
		tr.RecordOutcome(key, true)
	}
	assert.InDelta(t, 1.0, tr.Rate(key), 1e-9)

	// Past the span the counters halve, so one failure now moves the
	// rate noticeably: 5 successes / 6 total.
	tr.now = func() time.Time { return base.Add(2 * time.Minute) }
	tr.RecordOutcome(key, false)

	assert.InDelta(t, 5.0/6.0, tr.Rate(key), 1e-9)
}

func TestTracker_OldExtremesCannotDominateForever(t *testing.T) {
	tr := New(time.Minute, 4)
	key := "ua:scripted"

	now := time.Now()
	tr.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		tr.RecordOutcome(key, true)
	}
	require.InDelta(t, 1.0, tr.Rate(key), 1e-9)

	// Every rollover halves history; a steady failing run pulls the
	// rate below half within a few windows.
	for w := 0; w < 8; w++ {
		now = now.Add(2 * time.Minute)
		for i := 0; i < 20; i++ {
			tr.RecordOutcome(key, false)
		}
	}
	assert.Less(t, tr.Rate(key), 0.5)
}

func TestTracker_ConcurrentWritersStayConsistent(t *testing.T) {
	tr := New(time.Hour, 8)

	const (
		workers = 16
		perKey  = 200
	)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := fmt.Sprintf("ip:10.0.0.%d", w%4)
			for i := 0; i < perKey; i++ {
				tr.RecordOutcome(key, i%2 == 0)
				_ = tr.Rate(key)
			}
		}(w)
	}
	wg.Wait()

	snap := tr.Snapshot()
	assert.Equal(t, 4, snap.Keys)
	assert.Equal(t, uint64(workers*perKey), snap.Total)
	assert.Equal(t, uint64(workers*perKey/2), snap.Success)
	assert.LessOrEqual(t, snap.Success, snap.Total)
}

func TestTracker_SnapshotEmpty(t *testing.T) {
	tr := New(0, 0)
	snap := tr.Snapshot()
	assert.Zero(t, snap.Keys)
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.Success)
}
