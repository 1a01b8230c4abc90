package authgate

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/revocation"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	env := newTestEnv(t, nil, func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	pair, err := env.engine.IssuePair(ctx, "1", "a@b.com")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if err := env.engine.Revoke(ctx, pair.AccessToken); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	env.engine.Close()

	if n := sink.count.Load(); n != 0 {
		t.Fatalf("expected no audit events with audit disabled, got %d", n)
	}
}

func TestAuditEventsCarryFingerprintNotToken(t *testing.T) {
	buf := &syncBuffer{}
	env := newTestEnv(t, func(c *Config) {
		c.Audit.Enabled = true
		c.Audit.DropIfFull = false
	}, func(b *Builder) { b.WithAuditSink(NewJSONWriterSink(buf)) })
	ctx := context.Background()

	pair, err := env.engine.IssuePair(ctx, "1", "a@b.com")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	next, err := env.engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := env.engine.Logout(ctx, next.AccessToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	env.engine.Close()

	out := buf.String()
	for _, tok := range []string{pair.AccessToken, pair.RefreshToken, next.AccessToken, next.RefreshToken} {
		if strings.Contains(out, tok) {
			t.Fatal("audit output contains a raw token")
		}
	}
	if !strings.Contains(out, revocation.Fingerprint(pair.RefreshToken)) {
		t.Fatal("audit output should reference the rotated refresh token by fingerprint")
	}
	for _, ev := range []string{AuditEventRefreshRotated, AuditEventLogout} {
		if !strings.Contains(out, `"`+ev+`"`) {
			t.Fatalf("missing %s event in %s", ev, out)
		}
	}
}

func TestAuditDropIfFullDoesNotBlock(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	defer close(sink.gate)
	env := newTestEnv(t, func(c *Config) {
		c.Audit.Enabled = true
		c.Audit.BufferSize = 1
		c.Audit.DropIfFull = true
	}, func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			tok, err := env.engine.CreateAccessToken(ctx, "1", "a@b.com")
			if err != nil {
				t.Errorf("CreateAccessToken: %v", err)
				return
			}
			_ = env.engine.Revoke(ctx, tok)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine blocked on a full audit buffer")
	}
	if env.engine.AuditDropped() == 0 {
		t.Fatal("expected dropped audit events")
	}
}
