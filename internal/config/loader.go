package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/password"
)

// Load reads path (if non-empty), applies defaults and AUTHGATE_* environment overrides, and
// validates the result. jwt.secret has no default.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetDefault("app.name", "authgate")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "")

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "5s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.embedded", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.issuer", "auth-service")
	v.SetDefault("jwt.key_id", "")
	v.SetDefault("jwt.access_ttl_seconds", 900)
	v.SetDefault("jwt.refresh_ttl_seconds", 604800)
	v.SetDefault("jwt.leeway", "0s")

	v.SetDefault("revocation.ttl_seconds", 3600)
	v.SetDefault("revocation.cover_token_lifetime", true)
	v.SetDefault("revocation.prefix", "revoked_token")
	v.SetDefault("revocation.op_timeout", "250ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.latency_histograms", true)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.drop_if_full", true)

	v.SetDefault("users.prefix", "authgate:user")

	pw := password.DefaultConfig()
	v.SetDefault("password.memory_kb", pw.Memory)
	v.SetDefault("password.time", pw.Time)
	v.SetDefault("password.parallelism", pw.Parallelism)
	v.SetDefault("password.salt_length", pw.SaltLength)
	v.SetDefault("password.key_length", pw.KeyLength)
	v.SetDefault("password.min_length", pw.MinLength)
	v.SetDefault("password.max_bytes", pw.MaxBytes)

	th := rate.DefaultConfig()
	v.SetDefault("login_throttle.enabled", th.Enabled)
	v.SetDefault("login_throttle.max_attempts", th.MaxAttempts)
	v.SetDefault("login_throttle.window", th.Window)
	v.SetDefault("login_throttle.per_ip", th.PerIP)
	v.SetDefault("login_throttle.prefix", th.Prefix)

	v.SetEnvPrefix("AUTHGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.JWT.Secret == "" {
		return nil, ErrConfig("jwt.secret (AUTHGATE_JWT_SECRET) is required")
	}
	if err := cfg.Throttle.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	engineCfg := cfg.Engine()
	if err := engineCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
