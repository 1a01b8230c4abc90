package authgate

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/jwt"
)

// Config is loaded once at startup and treated as immutable afterwards.
type Config struct {
	JWT        JWTConfig
	Revocation RevocationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the shared signing secret and token lifetimes.
type JWTConfig struct {
	SigningMethod string // "HS256" (default), "HS384", "HS512"
	Secret        []byte
	Issuer        string
	KeyID         string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig controls revocation markers.
//
// TTL is the configured marker lifetime. With CoverTokenLifetime set, a marker lives for
// max(TTL, remaining token lifetime) so a revoked token cannot become valid again before it
// expires. With it unset, the marker lives exactly TTL and a long-lived token revoked with a
// short TTL validates again once the marker is gone.
type RevocationConfig struct {
	TTL                time.Duration
	CoverTokenLifetime bool
	Prefix             string
	OpTimeout          time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the validate latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. The signing secret is left empty and
// must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: string(jwt.MethodHS256),
			Issuer:        "auth-service",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
		},
		Revocation: RevocationConfig{
			TTL:                time.Hour,
			CoverTokenLifetime: true,
			Prefix:             "revoked_token",
			OpTimeout:          250 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret must be set")
	}
	if _, err := jwt.ParseSigningMethod(c.JWT.SigningMethod); err != nil {
		return err
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	// exp and iat are whole seconds.
	if c.JWT.AccessTTL < time.Second || c.JWT.RefreshTTL < time.Second {
		return errors.New("JWT AccessTTL and RefreshTTL must be at least 1s")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if strings.TrimSpace(c.JWT.Issuer) != c.JWT.Issuer {
		return errors.New("JWT Issuer must not carry surrounding whitespace")
	}

	if c.Revocation.TTL <= 0 {
		return errors.New("Revocation TTL must be > 0")
	}
	if c.Revocation.TTL < time.Second {
		return errors.New("Revocation TTL must be at least 1s")
	}
	if c.Revocation.OpTimeout <= 0 || c.Revocation.OpTimeout > 10*time.Second {
		return errors.New("Revocation OpTimeout must be in (0, 10s]")
	}
	if strings.ContainsAny(c.Revocation.Prefix, " \t\r\n") {
		return errors.New("Revocation Prefix must not contain whitespace")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	return nil
}
