package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps any failure talking to the backing store.
var ErrStoreUnavailable = errors.New("revocation store unavailable")

// ErrInvalidTTL is returned when a revocation is requested with a non-positive TTL.
var ErrInvalidTTL = errors.New("revocation ttl must be positive")

const (
	defaultPrefix    = "revoked_token"
	defaultOpTimeout = 250 * time.Millisecond
	markerValue      = "revoked"
)

// Config controls key naming and per-call deadlines.
type Config struct {
	Prefix    string
	OpTimeout time.Duration
}

// Store is safe for concurrent use; all state lives in Redis.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewStore fills in the default prefix and op timeout when cfg leaves them unset.
func NewStore(client redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = defaultOpTimeout
	}
	return &Store{
		redis:     client,
		prefix:    cfg.Prefix,
		opTimeout: cfg.OpTimeout,
	}
}

// Fingerprint is the lowercase hex SHA-256 of the full token string.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *Store) key(token string) string {
	return s.prefix + ":" + Fingerprint(token)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// IsRevoked reports whether a marker exists for token. An empty store is not an error.
func (s *Store) IsRevoked(ctx context.Context, token string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.redis.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// Revoke writes the marker with ttl in one SET EX. Repeating it only refreshes the TTL.
func (s *Store) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.key(token), markerValue, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeOnce writes the marker only if it is absent (SET NX EX). It reports whether this call
// created the marker, which makes it usable as a one-time-use claim on a token.
func (s *Store) RevokeOnce(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}
	if ttl < time.Second {
		ttl = time.Second
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created, err := s.redis.SetNX(ctx, s.key(token), markerValue, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return created, nil
}

// TTL returns how long the marker for token will survive. It returns 0 when no marker exists.
func (s *Store) TTL(ctx context.Context, token string) (time.Duration, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ttl, err := s.redis.TTL(ctx, s.key(token)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
