package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/httpapi"
	"github.com/MrEthical07/authgate/identity"
	"github.com/MrEthical07/authgate/internal/config"
	"github.com/MrEthical07/authgate/internal/obs"
	"github.com/MrEthical07/authgate/internal/rate"
	promexp "github.com/MrEthical07/authgate/metrics/export/prometheus"
)

func newServeCommand() *cobra.Command {
	var (
		configPath string
		embedded   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and forward-auth endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if embedded {
				cfg.Redis.Embedded = true
			}
			if cfg.App.Version == "" {
				cfg.App.Version = version
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (AUTHGATE_* env vars override it)")
	cmd.Flags().BoolVar(&embedded, "embedded-redis", false, "run against an in-process Redis; state is lost on exit")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := obs.NewLogger(cfg.Logger())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting authgate", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	engineCfg := cfg.Engine()
	findings := engineCfg.Lint()
	for _, w := range findings {
		logger.Warn("config lint",
			zap.String("code", w.Code),
			zap.Stringer("severity", w.Severity),
			zap.String("message", w.Message))
	}
	if cfg.App.Env == "prod" {
		if err := findings.AsError(authgate.LintHigh); err != nil {
			return err
		}
	}

	rdb, cleanup, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := authgate.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	users, err := identity.NewDefaultService(identity.NewRedisStore(rdb, cfg.Users.Prefix), cfg.Password, logger)
	if err != nil {
		return fmt.Errorf("build identity service: %w", err)
	}

	deps := httpapi.Deps{
		Tokens:   engine,
		Users:    users,
		Throttle: rate.New(rdb, cfg.Throttle),
		Logger:   logger,
		Health:   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },

		PasswordMinLength: cfg.Password.MinLength,
		RetryAfter:        cfg.Throttle.Window,
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = promexp.NewExporter(engine).Handler()
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpapi.NewRouter(deps),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case runErr = <-errCh:
		if errors.Is(runErr, http.ErrServerClosed) {
			runErr = nil
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("bye", zap.Uint64("audit_dropped", engine.AuditDropped()))
	return runErr
}

// connectRedis returns a pinged client. In embedded mode the client talks to a miniredis
// instance that lives until cleanup runs.
func connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	opts := cfg.Redis.Options()
	var mr *miniredis.Miniredis
	if cfg.Redis.Embedded {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		opts = &redis.Options{Addr: mr.Addr()}
		logger.Warn("using embedded redis; revocations and users do not survive a restart", zap.String("addr", mr.Addr()))
	}

	rdb := redis.NewClient(opts)
	cleanup := func() {
		_ = rdb.Close()
		if mr != nil {
			mr.Close()
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return rdb, cleanup, nil
}
