package nonce

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// keyPrefix is the Redis key prefix for nonces
	keyPrefix = "hc:nonce"
)

// consumeScript atomically reads a nonce record and marks it consumed.
// KEYS[1] = record key, ARGV[1] = consumed-at timestamp (RFC3339Nano),
// ARGV[2] = current unix seconds.
// Returns the record JSON as it was before the mark, or false on miss.
// The consumed and expiry checks happen inside Redis so two concurrent
// verifications cannot both observe a live record, and expired records
// are never marked consumed (a late retry must keep reporting expiry).
var consumeScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
  return false
end
local rec = cjson.decode(raw)
if rec.consumed then
  return raw
end
if tonumber(ARGV[2]) > tonumber(rec.expires_unix) then
  return raw
end
rec.consumed = true
rec.consumed_at = ARGV[1]
local ttl = redis.call("TTL", KEYS[1])
if ttl > 0 then
  redis.call("SET", KEYS[1], cjson.encode(rec), "EX", ttl)
else
  redis.call("SET", KEYS[1], cjson.encode(rec))
end
return raw
`)

// RedisStore implements Store on a shared Redis instance, giving all
// server processes a consistent view of outstanding nonces.
//
// Records live under a TTL of ttl+grace: while the grace window lasts an
// expired nonce is still resolvable and Consume answers ErrExpired; after
// Redis evicts the key the same attempt degrades to ErrNotFound.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	grace  time.Duration
	logger *zap.Logger

	now func() time.Time
}

// Compile-time interface compliance check
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed nonce store.
func NewRedisStore(client *redis.Client, ttl, grace time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		grace:  grace,
		logger: logger,
		now:    time.Now,
	}
}

// buildKey creates a Redis key from a nonce identifier.
// Format: hc:nonce:{id}
func buildKey(id string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, id)
}

// Issue stores a fresh record with NX semantics so a generated id can
// never silently overwrite an existing one.
func (s *RedisStore) Issue(ctx context.Context, clientIP, userAgent string) (*Record, error) {
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

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode nonce record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, buildKey(id), raw, s.ttl+s.grace).Result()
	if err != nil {
		s.logger.Error("failed to store nonce",
			zap.String("nonce", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to store nonce: %w", err)
	}
	if !ok {
		// 128-bit collision; practically unreachable.
		return nil, fmt.Errorf("nonce id collision")
	}

	s.logger.Debug("nonce issued",
		zap.String("nonce", id),
		zap.String("client_ip", clientIP),
	)
	return rec, nil
}

// Consume runs the atomic read-and-mark script and translates the
// pre-mark record state into the store error taxonomy.
func (s *RedisStore) Consume(ctx context.Context, id string) (*Record, error) {
	now := s.now()

	res, err := consumeScript.Run(ctx, s.client, []string{buildKey(id)},
		now.Format(time.RFC3339Nano), now.Unix()).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to consume nonce",
			zap.String("nonce", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to consume nonce: %w", err)
	}

	raw, ok := res.(string)
	if !ok {
		return nil, ErrNotFound
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode nonce record: %w", err)
	}

	if rec.Consumed {
		return nil, ErrReplayed
	}
	if rec.Expired(now) {
		return nil, ErrExpired
	}

	rec.Consumed = true
	rec.ConsumedAt = now
	return &rec, nil
}

// Sweep is a no-op for Redis; key TTLs bound memory on their own.
func (s *RedisStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

// Size counts outstanding nonce keys.
func (s *RedisStore) Size(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+":*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan nonce keys: %w", err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}
