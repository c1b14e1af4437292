// Package passrate maintains rolling accept/reject counters per client key
// (IP address or user agent). The verification engine reads these rates to
// adapt its pass threshold to observed traffic.
package passrate

import (
	"hash/fnv"
	"sync"
	"time"
)

const (
	// DefaultWindow is the rolling window span after which counters decay.
	DefaultWindow = 30 * time.Minute

	// DefaultShards spreads keys over independent locks so unrelated
	// clients never contend with each other.
	DefaultShards = 16

	// NeutralRate is reported for keys with no recorded history. It keeps
	// first-seen clients from being punished and avoids division by zero.
	NeutralRate = 0.5
)

// window holds the counters for one key within the current span.
// Invariant: success <= total.
type window struct {
	success uint64
	total   uint64
	start   time.Time
}

type shard struct {
	mu      sync.RWMutex
	windows map[string]*window
}

// Tracker is a sharded pass-rate tracker. Writes serialize per shard,
// reads take the shared lock only.
type Tracker struct {
	shards []*shard
	span   time.Duration

	now func() time.Time
}

// Snapshot is a read-only aggregate of tracker state.
type Snapshot struct {
	Keys    int    `json:"keys"`
	Total   uint64 `json:"total"`
	Success uint64 `json:"success"`
}

// New creates a tracker with the given window span and shard count.
func New(span time.Duration, shards int) *Tracker {
	if span <= 0 {
		span = DefaultWindow
	}
	if shards <= 0 {
		shards = DefaultShards
	}
	t := &Tracker{
		shards: make([]*shard, shards),
		span:   span,
		now:    time.Now,
	}
	for i := range t.shards {
		t.shards[i] = &shard{windows: make(map[string]*window)}
	}
	return t
}

func (t *Tracker) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return t.shards[h.Sum32()%uint32(len(t.shards))]
}

// RecordOutcome counts one completed verification for the key.
// When the window outlives its span the counters halve instead of
// resetting, so history fades without a hard cliff.
func (t *Tracker) RecordOutcome(key string, success bool) {
	if key == "" {
		return
	}
	now := t.now()
	sh := t.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.windows[key]
	if !ok {
		w = &window{start: now}
		sh.windows[key] = w
	}

	if now.Sub(w.start) > t.span {
		w.success /= 2
		w.total /= 2
		w.start = now
	}

	w.total++
	if success {
		w.success++
	}
}

// Rate returns the pass rate for key in [0,1], or NeutralRate when the
// key has no history.
func (t *Tracker) Rate(key string) float64 {
	if key == "" {
		return NeutralRate
	}
	sh := t.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	w, ok := sh.windows[key]
	if !ok || w.total == 0 {
		return NeutralRate
	}
	return float64(w.success) / float64(w.total)
}

// Snapshot aggregates state across all shards.
func (t *Tracker) Snapshot() Snapshot {
	var snap Snapshot
	for _, sh := range t.shards {
		sh.mu.RLock()
		snap.Keys += len(sh.windows)
		for _, w := range sh.windows {
			snap.Total += w.total
			snap.Success += w.success
		}
		sh.mu.RUnlock()
	}
	return snap
}
