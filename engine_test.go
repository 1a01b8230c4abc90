package authgate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrEthical07/authgate/revocation"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *testClock
}

// advance moves both the engine clock and the redis clock.
func (env *testEnv) advance(d time.Duration) {
	env.clock.Advance(d)
	env.mr.FastForward(d)
}

func newTestEnv(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("engine-test-secret-engine-test-s")
	if mutate != nil {
		mutate(&cfg)
	}

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	b := New().WithConfig(cfg).WithRedis(rdb).WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, rdb: rdb, clock: clock}
}

func TestBuildRequiresRedisAndSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("x")
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected error without redis client")
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	if _, err := New().WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without secret")
	}

	b := New().WithConfig(cfg).WithRedis(rdb)
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestNilEngineIsNotReady(t *testing.T) {
	var e *Engine
	ctx := context.Background()
	if _, err := e.CreateAccessToken(ctx, "1", "a@b.com"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Validate(ctx, "x", TokenAccess); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.Logout(ctx, ""); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
}

func TestAccessTokenRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	tok, err := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("expected three-segment token, got %q", tok)
	}

	id, err := env.engine.Validate(ctx, tok, TokenAccess)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id.UserID != "1" || id.Email != "a@b.com" || id.Type != TokenAccess {
		t.Fatalf("unexpected identity %+v", id)
	}
	if want := env.clock.Now().Add(15 * time.Minute); !id.ExpiresAt.Equal(want) {
		t.Fatalf("expires at %v, want %v", id.ExpiresAt, want)
	}
	if id.Claims.Issuer != "auth-service" {
		t.Fatalf("unexpected issuer %q", id.Claims.Issuer)
	}
}

func TestSubSecondTTLRejectedAtBuild(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("engine-test-secret-engine-test-s")
	cfg.JWT.AccessTTL = 500 * time.Millisecond
	if _, err := New().WithConfig(cfg).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected a sub-second access TTL to be rejected")
	}
}

func TestOneSecondAccessTTLMints(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.JWT.AccessTTL = time.Second })
	env.clock.Advance(400 * time.Millisecond)
	ctx := context.Background()

	tok, err := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.engine.Validate(ctx, tok, TokenAccess); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsWrongType(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	access, _ := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
	refresh, _ := env.engine.CreateRefreshToken(ctx, "1", "a@b.com")

	if _, err := env.engine.Validate(ctx, access, TokenRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access as refresh: expected ErrTokenInvalid, got %v", err)
	}
	if _, err := env.engine.Validate(ctx, refresh, TokenAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh as access: expected ErrTokenInvalid, got %v", err)
	}
	if r := env.engine.Inspect(ctx, refresh, TokenAccess); r.Failure != FailureTypeMismatch {
		t.Fatalf("expected type mismatch, got %v", r.Failure)
	}

	for _, tok := range []string{access, refresh} {
		if _, err := env.engine.Validate(ctx, tok, TokenAny); err != nil {
			t.Fatalf("type-agnostic validate should accept %q: %v", tok[:10], err)
		}
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.JWT.AccessTTL = time.Minute })
	ctx := context.Background()

	tok, _ := env.engine.CreateAccessToken(ctx, "1", "a@b.com")

	env.clock.Advance(time.Minute - time.Second)
	if _, err := env.engine.Validate(ctx, tok, TokenAccess); err != nil {
		t.Fatalf("token should be valid just before exp: %v", err)
	}

	env.clock.Advance(time.Second)
	if _, err := env.engine.Validate(ctx, tok, TokenAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("token should be invalid at exp, got %v", err)
	}
	if r := env.engine.Inspect(ctx, tok, TokenAccess); r.Failure != FailureExpired {
		t.Fatalf("expected expired, got %v", r.Failure)
	}
}

func TestValidateMalformed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, tok := range []string{"not.a.token", "garbage", ""} {
		if _, err := env.engine.Validate(ctx, tok, TokenAny); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("%q: expected ErrTokenInvalid, got %v", tok, err)
		}
	}
	if r := env.engine.Inspect(ctx, "not.a.token", TokenAccess); r.Failure != FailureMalformed {
		t.Fatalf("expected malformed, got %v", r.Failure)
	}
	if r := env.engine.Inspect(ctx, "", TokenAccess); r.Failure != FailureMissing {
		t.Fatalf("expected missing, got %v", r.Failure)
	}
}

func TestRevokeInvalidatesToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	tok, _ := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
	if err := env.engine.Revoke(ctx, tok); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	// idempotent
	if err := env.engine.Revoke(ctx, tok); err != nil {
		t.Fatalf("second revoke: %v", err)
	}

	if _, err := env.engine.Validate(ctx, tok, TokenAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if r := env.engine.Inspect(ctx, tok, TokenAccess); r.Failure != FailureRevoked {
		t.Fatalf("expected revoked, got %v", r.Failure)
	}

	revoked, err := env.engine.IsRevoked(ctx, tok)
	if err != nil || !revoked {
		t.Fatalf("IsRevoked = %v, %v", revoked, err)
	}

	key := "revoked_token:" + revocation.Fingerprint(tok)
	if !env.mr.Exists(key) {
		t.Fatalf("expected marker under %s", key)
	}
	if got, _ := env.mr.Get(key); got != "revoked" {
		t.Fatalf("marker value %q", got)
	}
}

func TestRevokeEmptyTokenIsMissing(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.engine.Revoke(context.Background(), ""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestFixedRevocationTTLLetsTokenValidateAgain(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.JWT.AccessTTL = 2 * time.Hour
		c.Revocation.TTL = time.Minute
		c.Revocation.CoverTokenLifetime = false
	})
	ctx := context.Background()

	tok, _ := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
	if err := env.engine.Revoke(ctx, tok); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	key := "revoked_token:" + revocation.Fingerprint(tok)
	if ttl := env.mr.TTL(key); ttl != time.Minute {
		t.Fatalf("marker ttl %v, want 1m", ttl)
	}

	env.advance(time.Minute + time.Second)

	if _, err := env.engine.Validate(ctx, tok, TokenAccess); err != nil {
		t.Fatalf("fixed-TTL marker expired, token should validate again: %v", err)
	}
}

func TestCoveringRevocationTTLOutlivesToken(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.JWT.AccessTTL = 2 * time.Hour
		c.Revocation.TTL = time.Minute
		c.Revocation.CoverTokenLifetime = true
	})
	ctx := context.Background()

	tok, _ := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
	env.clock.Advance(30 * time.Minute)
	if err := env.engine.Revoke(ctx, tok); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	key := "revoked_token:" + revocation.Fingerprint(tok)
	if ttl := env.mr.TTL(key); ttl != 90*time.Minute {
		t.Fatalf("marker ttl %v, want 90m", ttl)
	}

	env.advance(time.Minute + time.Second)
	if _, err := env.engine.Validate(ctx, tok, TokenAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected token to remain revoked, got %v", err)
	}

	env.advance(90 * time.Minute)
	if env.mr.Exists(key) {
		t.Fatal("marker should be gone after token expiry")
	}
	if r := env.engine.Inspect(ctx, tok, TokenAccess); r.Failure != FailureExpired {
		t.Fatalf("expected expired once marker is gone, got %v", r.Failure)
	}
}

func TestRefreshRotatesOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	refresh, _ := env.engine.CreateRefreshToken(ctx, "1", "a@b.com")

	pair, err := env.engine.Refresh(ctx, refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.RefreshToken == refresh {
		t.Fatal("rotated refresh token must differ from presented one")
	}

	id, err := env.engine.Validate(ctx, pair.AccessToken, TokenAccess)
	if err != nil || id.UserID != "1" || id.Email != "a@b.com" {
		t.Fatalf("new access token: %+v, %v", id, err)
	}
	if _, err := env.engine.Validate(ctx, pair.RefreshToken, TokenRefresh); err != nil {
		t.Fatalf("new refresh token: %v", err)
	}

	if _, err := env.engine.Refresh(ctx, refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("second use: expected ErrTokenInvalid, got %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricRefreshSuccess] != 1 || snap.Counters[MetricRefreshFailure] != 1 {
		t.Fatalf("unexpected refresh counters %+v", snap.Counters)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	access, _ := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
	pair, err := env.engine.Refresh(ctx, access)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if pair != (TokenPair{}) {
		t.Fatalf("expected no tokens, got %+v", pair)
	}
	// presented access token untouched
	if _, err := env.engine.Validate(ctx, access, TokenAccess); err != nil {
		t.Fatalf("access token should still validate: %v", err)
	}
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	refresh, _ := env.engine.CreateRefreshToken(ctx, "1", "a@b.com")

	const workers = 12
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := env.engine.Refresh(ctx, refresh); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one successful rotation, got %d", got)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricRefreshFailure]; got != workers-1 {
		t.Fatalf("expected %d failures, got %d", workers-1, got)
	}
}

func TestStoreDownFailsClosed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	access, _ := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
	refresh, _ := env.engine.CreateRefreshToken(ctx, "1", "a@b.com")

	env.mr.Close()

	if _, err := env.engine.Validate(ctx, access, TokenAccess); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("validate: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := env.engine.IsRevoked(ctx, access); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("is revoked: expected ErrStoreUnavailable, got %v", err)
	}
	if err := env.engine.Revoke(ctx, access); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("revoke: expected ErrStoreUnavailable, got %v", err)
	}
	pair, err := env.engine.Refresh(ctx, refresh)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("refresh: expected ErrStoreUnavailable, got %v", err)
	}
	if pair != (TokenPair{}) {
		t.Fatal("refresh must not return tokens when the store is down")
	}
	if env.engine.MetricsSnapshot().Counters[MetricStoreUnavailable] == 0 {
		t.Fatal("expected store-unavailable counter to move")
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if err := env.engine.Logout(ctx, ""); err != nil {
		t.Fatalf("logout without token should succeed: %v", err)
	}

	tok, _ := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
	if err := env.engine.Logout(ctx, tok); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := env.engine.Validate(ctx, tok, TokenAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected logged-out token to be invalid, got %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricLogout] != 1 || snap.Counters[MetricLogoutNoToken] != 1 {
		t.Fatalf("unexpected logout counters %+v", snap.Counters)
	}
}

func TestIssuePairScenario(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	pair, err := env.engine.IssuePair(ctx, "1", "a@b.com")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	a, err := env.engine.Validate(ctx, pair.AccessToken, TokenAccess)
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	r, err := env.engine.Validate(ctx, pair.RefreshToken, TokenRefresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if a.UserID != "1" || r.UserID != "1" || a.Email != "a@b.com" || r.Email != "a@b.com" {
		t.Fatalf("unexpected identities %+v %+v", a, r)
	}
	if !r.ExpiresAt.After(a.ExpiresAt) {
		t.Fatal("refresh token should outlive access token")
	}
}

func TestAuditEventsForRevokeAndRefresh(t *testing.T) {
	sink := NewChannelSink(32)
	env := newTestEnv(t, func(c *Config) {
		c.Audit.Enabled = true
		c.Audit.DropIfFull = false
	}, func(b *Builder) { b.WithAuditSink(sink) })
	ctx := WithRequestID(context.Background(), "req-1")

	refresh, _ := env.engine.CreateRefreshToken(ctx, "9", "z@b.com")
	if _, err := env.engine.Refresh(ctx, refresh); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	_, _ = env.engine.Refresh(ctx, refresh)
	env.engine.Close()

	var types []string
	for {
		select {
		case ev := <-sink.Events():
			types = append(types, ev.EventType)
			if ev.EventType == AuditEventRefreshReuse {
				if ev.Success || ev.Error != "token_invalid" || ev.UserID != "9" {
					t.Fatalf("unexpected reuse event %+v", ev)
				}
				if ev.Fingerprint != revocation.Fingerprint(refresh) {
					t.Fatal("reuse event should carry the token fingerprint")
				}
				if ev.Metadata["request_id"] != "req-1" {
					t.Fatalf("missing request id in %+v", ev.Metadata)
				}
			}
			continue
		default:
		}
		break
	}

	want := []string{AuditEventRefreshIssued, AuditEventRefreshRotated, AuditEventRefreshReuse}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("events %v, want %v", types, want)
	}
}

func TestValidationFailureLogsPrefixOnly(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	env := newTestEnv(t, nil, func(b *Builder) { b.WithLogger(zap.New(core)) })
	ctx := context.Background()

	tok, _ := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
	_ = env.engine.Revoke(ctx, tok)
	_, _ = env.engine.Validate(ctx, tok, TokenAccess)

	entries := logs.FilterMessage("token validation failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one failure log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["reason"] != "credential_revoked" {
		t.Fatalf("unexpected reason %v", fields["reason"])
	}
	prefix, _ := fields["token_prefix"].(string)
	if prefix != tok[:10]+"..." {
		t.Fatalf("unexpected prefix %q", prefix)
	}
	for _, e := range logs.All() {
		for _, v := range e.ContextMap() {
			if s, ok := v.(string); ok && s == tok {
				t.Fatal("full token must never be logged")
			}
		}
	}
}
