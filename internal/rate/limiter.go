package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds login throttle tuning.
type Config struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Window      time.Duration `mapstructure:"window"`
	PerIP       bool          `mapstructure:"per_ip"`
	Prefix      string        `mapstructure:"prefix"`
}

// DefaultConfig allows 5 failures per email and IP in 15 minutes.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		PerIP:       true,
		Prefix:      "authgate:login",
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxAttempts <= 0 {
		return errors.New("login throttle MaxAttempts must be > 0")
	}
	if c.Window <= 0 {
		return errors.New("login throttle Window must be > 0")
	}
	if c.Prefix == "" {
		return errors.New("login throttle Prefix must be set")
	}
	return nil
}

// Limiter enforces per-email and per-IP failed login budgets. A nil or disabled Limiter
// allows everything.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns a limiter. A disabled config yields a limiter whose methods are no-ops.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Limiter) enabled() bool {
	return l != nil && l.config.Enabled && l.redis != nil
}

// Check returns ErrRateLimited once the email or IP has used up its failure budget.
func (l *Limiter) Check(ctx context.Context, email, ip string) error {
	if !l.enabled() {
		return nil
	}
	for _, key := range l.keys(email, ip) {
		if err := l.checkCounter(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Fail records a failed attempt. It returns ErrRateLimited when this attempt exhausted the
// budget.
func (l *Limiter) Fail(ctx context.Context, email, ip string) error {
	if !l.enabled() {
		return nil
	}
	var limited bool
	for _, key := range l.keys(email, ip) {
		count, err := l.incrementWithTTL(ctx, key)
		if err != nil {
			return err
		}
		if count >= int64(l.config.MaxAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counters after a successful login.
func (l *Limiter) Reset(ctx context.Context, email, ip string) error {
	if !l.enabled() {
		return nil
	}
	if err := l.redis.Del(ctx, l.keys(email, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the failure count recorded for email. Missing keys count as zero.
func (l *Limiter) Attempts(ctx context.Context, email string) (int, error) {
	if !l.enabled() {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.emailKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) emailKey(email string) string { return l.config.Prefix + ":email:" + email }
func (l *Limiter) ipKey(ip string) string       { return l.config.Prefix + ":ip:" + ip }

func (l *Limiter) keys(email, ip string) []string {
	keys := []string{l.emailKey(email)}
	if l.config.PerIP && ip != "" {
		keys = append(keys, l.ipKey(ip))
	}
	return keys
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the expiry is set only on the first hit.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
