package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authgate/internal/config"
)

func executeRootCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := executeRootCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "authgate "+version+"\n", out)
}

func TestServeRequiresSecret(t *testing.T) {
	t.Setenv("AUTHGATE_JWT_SECRET", "")
	_, err := executeRootCommand(t, "serve", "--embedded-redis")
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestLoadtestRejectsNonPositive(t *testing.T) {
	_, err := executeRootCommand(t, "loadtest", "--ops", "0")
	assert.Error(t, err)
}

func TestLoadtestSmallRun(t *testing.T) {
	mr := miniredis.RunT(t)
	out, err := executeRootCommand(t, "loadtest",
		"--users", "5", "--concurrency", "4", "--ops", "40", "--redis-addr", mr.Addr())
	require.NoError(t, err)
	assert.Contains(t, out, "validate: ops=40 failures=0")
	assert.Contains(t, out, "refresh: ops=40 failures=0")
}

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(1), percentile(samples, 0))
	assert.Equal(t, time.Duration(5), percentile(samples, 50))
	assert.Equal(t, time.Duration(10), percentile(samples, 100))
	assert.Zero(t, percentile(nil, 50))
}

func TestServeEmbeddedShutsDownOnCancel(t *testing.T) {
	t.Setenv("AUTHGATE_JWT_SECRET", "test-secret")
	t.Setenv("AUTHGATE_SERVER_HTTP_ADDR", "127.0.0.1:0")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Redis.Embedded = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestRootHelpMentionsCommands(t *testing.T) {
	out, err := executeRootCommand(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"serve", "loadtest", "version"} {
		assert.True(t, strings.Contains(out, name), name)
	}
}

func TestServeProdRefusesHighLintFindings(t *testing.T) {
	t.Setenv("AUTHGATE_JWT_SECRET", "short")
	t.Setenv("AUTHGATE_APP_ENV", "prod")
	_, err := executeRootCommand(t, "serve", "--embedded-redis")
	assert.ErrorContains(t, err, "secret_short")
}
