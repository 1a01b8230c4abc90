package authgate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/jwt"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

// String returns "info", "warn" or "high".
func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one finding from (*Config).Lint. Code is stable and machine readable.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of findings from Config.Lint.
type LintResult []LintWarning

// Codes returns the finding codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(hits))
	for _, w := range hits {
		msgs = append(msgs, w.Code+": "+w.Message)
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

var minSecretBytes = map[jwt.SigningMethod]int{
	jwt.MethodHS256: 32,
	jwt.MethodHS384: 48,
	jwt.MethodHS512: 64,
}

// Lint reports settings that are valid but risky. It assumes Validate already passed.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, msg string) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if method, err := jwt.ParseSigningMethod(c.JWT.SigningMethod); err == nil {
		if n := minSecretBytes[method]; len(c.JWT.Secret) < n {
			add("secret_short", LintHigh,
				fmt.Sprintf("%s secret is %d bytes, want at least %d", method, len(c.JWT.Secret), n))
		}
	}

	if !c.Revocation.CoverTokenLifetime {
		switch {
		case c.Revocation.TTL < c.JWT.RefreshTTL:
			add("revocation_ttl_short", LintHigh,
				"revoked refresh tokens validate again once the marker expires; enable CoverTokenLifetime or raise Revocation.TTL")
		case c.Revocation.TTL < c.JWT.AccessTTL:
			add("revocation_ttl_short", LintWarn,
				"revoked access tokens validate again once the marker expires")
		}
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "leeway above 1m extends every token's effective lifetime")
	}
	if c.JWT.AccessTTL > 15*time.Minute {
		add("access_ttl_long", LintWarn, "access tokens live longer than 15m")
	}
	if c.JWT.RefreshTTL > 30*24*time.Hour {
		add("refresh_ttl_long", LintInfo, "refresh tokens live longer than 30 days")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "security events are not audited")
	}
	if !c.Metrics.Enabled {
		add("metrics_disabled", LintInfo, "token metrics are not collected")
	}
	return out
}
