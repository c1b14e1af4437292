package nonce

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultTTL is the default nonce validity duration
	DefaultTTL = 2 * time.Minute

	// DefaultGrace is how long expired or consumed records are kept around
	// so that late consume attempts can be answered with the precise
	// failure (expired vs. never issued) instead of a generic miss.
	DefaultGrace = 5 * time.Minute

	// idBytes is the identifier entropy in bytes (128 bits).
	idBytes = 16
)

// Record is the stored metadata for a single issued nonce.
type Record struct {
	ID        string    `json:"id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	// ExpiresUnix mirrors ExpiresAt in unix seconds so storage backends
	// can compare expiry without parsing timestamps.
	ExpiresUnix int64     `json:"expires_unix"`
	ClientIP    string    `json:"client_ip"`
	UserAgent   string    `json:"user_agent"`
	Consumed    bool      `json:"consumed"`
	ConsumedAt  time.Time `json:"consumed_at,omitempty"`
}

// Expired reports whether the record is past its validity window at t.
func (r *Record) Expired(t time.Time) bool {
	return t.After(r.ExpiresAt)
}

// Store defines the interface for nonce storage.
// Implementations can use Redis, in-memory, or other backends.
//
// Consume must be atomic: under concurrent calls with the same id exactly
// one caller observes success, all others get ErrReplayed.
type Store interface {
	// Issue generates and stores a fresh single-use nonce bound to the
	// requesting client IP and user agent.
	Issue(ctx context.Context, clientIP, userAgent string) (*Record, error)

	// Consume atomically looks up the nonce and marks it consumed.
	// Returns ErrNotFound, ErrExpired or ErrReplayed on failure.
	Consume(ctx context.Context, id string) (*Record, error)

	// Sweep removes expired and long-consumed records, returning how many
	// were dropped. Correctness of Consume does not depend on Sweep.
	Sweep(ctx context.Context) (int, error)

	// Size reports the number of outstanding records.
	Size(ctx context.Context) (int, error)
}

// Error definitions
var (
	ErrNotFound = errors.New("nonce not found")
	ErrExpired  = errors.New("nonce expired")
	ErrReplayed = errors.New("nonce already consumed")
)

// NewID returns a cryptographically random nonce identifier.
func NewID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
