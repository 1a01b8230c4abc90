package authgate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func BenchmarkValidateAccess(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()
	token, err := engine.CreateAccessToken(ctx, "1", "a@b.com")
	if err != nil {
		b.Fatalf("CreateAccessToken: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Validate(ctx, token, TokenAccess); err != nil {
			b.Fatalf("validate failed: %v", err)
		}
	}
}

func BenchmarkValidateAccessParallel(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()
	token, err := engine.CreateAccessToken(ctx, "1", "a@b.com")
	if err != nil {
		b.Fatalf("CreateAccessToken: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := engine.Validate(ctx, token, TokenAccess); err != nil {
				b.Errorf("validate failed: %v", err)
				return
			}
		}
	})
}

func BenchmarkIssuePair(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.IssuePair(ctx, "1", "a@b.com"); err != nil {
			b.Fatalf("issue failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()
	pair, err := engine.IssuePair(ctx, "1", "a@b.com")
	if err != nil {
		b.Fatalf("IssuePair: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pair, err = engine.Refresh(ctx, pair.RefreshToken)
		if err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
	}
}

func newBenchmarkEngine(b *testing.B) *Engine {
	b.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		b.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("bench-secret-bench-secret-bench-")
	cfg.JWT.AccessTTL = 10 * time.Minute
	cfg.JWT.RefreshTTL = 10 * time.Minute
	cfg.Metrics.Enabled = false

	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	b.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return engine
}
