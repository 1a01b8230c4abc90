// Package config loads the service configuration from an optional YAML file and AUTHGATE_*
// environment variables.
package config

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal/obs"
	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/password"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

// Redis configures the client shared by the revocation store and the user store. Embedded
// starts an in-process miniredis instead, for local development only.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Embedded bool   `mapstructure:"embedded"`
}

// Options converts the section into go-redis client options.
func (r *Redis) Options() *redis.Options {
	return &redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}
}

type JWT struct {
	Secret            string        `mapstructure:"secret"`
	Algorithm         string        `mapstructure:"algorithm"`
	Issuer            string        `mapstructure:"issuer"`
	KeyID             string        `mapstructure:"key_id"`
	AccessTTLSeconds  int           `mapstructure:"access_ttl_seconds"`
	RefreshTTLSeconds int           `mapstructure:"refresh_ttl_seconds"`
	Leeway            time.Duration `mapstructure:"leeway"`
}

type Revocation struct {
	TTLSeconds         int           `mapstructure:"ttl_seconds"`
	CoverTokenLifetime bool          `mapstructure:"cover_token_lifetime"`
	Prefix             string        `mapstructure:"prefix"`
	OpTimeout          time.Duration `mapstructure:"op_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Metrics struct {
	Enabled           bool `mapstructure:"enabled"`
	LatencyHistograms bool `mapstructure:"latency_histograms"`
}

type Audit struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

type Users struct {
	Prefix string `mapstructure:"prefix"`
}

// Config is the whole service configuration as loaded by Load.
type Config struct {
	App        App             `mapstructure:"app"`
	Server     Server          `mapstructure:"server"`
	Redis      Redis           `mapstructure:"redis"`
	JWT        JWT             `mapstructure:"jwt"`
	Revocation Revocation      `mapstructure:"revocation"`
	Log        Log             `mapstructure:"log"`
	Metrics    Metrics         `mapstructure:"metrics"`
	Audit      Audit           `mapstructure:"audit"`
	Users      Users           `mapstructure:"users"`
	Password   password.Config `mapstructure:"password"`
	Throttle   rate.Config     `mapstructure:"login_throttle"`
}

// ErrConfig reports an invalid or missing setting.
type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

func (c *Config) Logger() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

// Engine converts the loaded values into the engine configuration.
func (c *Config) Engine() authgate.Config {
	cfg := authgate.DefaultConfig()
	cfg.JWT.Secret = []byte(c.JWT.Secret)
	cfg.JWT.SigningMethod = c.JWT.Algorithm
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.JWT.KeyID = c.JWT.KeyID
	cfg.JWT.AccessTTL = time.Duration(c.JWT.AccessTTLSeconds) * time.Second
	cfg.JWT.RefreshTTL = time.Duration(c.JWT.RefreshTTLSeconds) * time.Second
	cfg.JWT.Leeway = c.JWT.Leeway

	cfg.Revocation.TTL = time.Duration(c.Revocation.TTLSeconds) * time.Second
	cfg.Revocation.CoverTokenLifetime = c.Revocation.CoverTokenLifetime
	cfg.Revocation.Prefix = c.Revocation.Prefix
	cfg.Revocation.OpTimeout = c.Revocation.OpTimeout

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.LatencyHistograms

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize
	cfg.Audit.DropIfFull = c.Audit.DropIfFull
	return cfg
}
