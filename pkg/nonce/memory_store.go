package nonce

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryStore implements Store with a mutex-guarded in-process map.
// Suitable for single-instance deployments; nonce state does not survive
// restarts and is not shared across processes.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record

	ttl    time.Duration
	grace  time.Duration
	logger *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// Compile-time interface compliance check
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory nonce store.
func NewMemoryStore(ttl, grace time.Duration, logger *zap.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &MemoryStore{
		records: make(map[string]*Record),
		ttl:     ttl,
		grace:   grace,
		logger:  logger,
		now:     time.Now,
	}
}

// Issue generates a fresh nonce record and stores it.
func (s *MemoryStore) Issue(ctx context.Context, clientIP, userAgent string) (*Record, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &Record{
		ID:          id,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
		ExpiresUnix: now.Add(s.ttl).Unix(),
		ClientIP:    clientIP,
		UserAgent:   userAgent,
	}

	s.mu.Lock()
	s.records[id] = rec
	s.mu.Unlock()

	s.logger.Debug("nonce issued",
		zap.String("nonce", id),
		zap.String("client_ip", clientIP),
	)

	cp := *rec
	return &cp, nil
}

// Consume looks up and marks the record consumed under a single lock
// acquisition, so concurrent consumers of the same id serialize here.
func (s *MemoryStore) Consume(ctx context.Context, id string) (*Record, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Consumed {
		return nil, ErrReplayed
	}
	if rec.Expired(now) {
		return nil, ErrExpired
	}

	rec.Consumed = true
	rec.ConsumedAt = now

	cp := *rec
	return &cp, nil
}

// Sweep drops records that expired or were consumed more than the grace
// period ago. Keeping them through the grace window lets Consume report
// ErrExpired/ErrReplayed instead of ErrNotFound for recent ids.
func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		switch {
		case now.After(rec.ExpiresAt.Add(s.grace)):
			delete(s.records, id)
			removed++
		case rec.Consumed && now.After(rec.ConsumedAt.Add(s.grace)):
			delete(s.records, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("nonce sweep completed", zap.Int("removed", removed))
	}
	return removed, nil
}

// Size reports the current number of stored records.
func (s *MemoryStore) Size(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}
