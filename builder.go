package authgate

import (
	"errors"
	"time"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/revocation"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder is single-use: Build may only succeed once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	logger    *zap.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The secret is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the revocation store. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the engine logger. A nil logger means zap.NewNop.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the destination for audit events. It only takes effect when
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source for issuance and validation. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled overrides Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms overrides Config.Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	method, err := jwt.ParseSigningMethod(cfg.JWT.SigningMethod)
	if err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- SIGNER / VERIFIER --------
	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: method,
		Secret:        cfg.JWT.Secret,
		Issuer:        cfg.JWT.Issuer,
		KeyID:         cfg.JWT.KeyID,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- REVOCATION STORE --------
	store := revocation.NewStore(b.redis, revocation.Config{
		Prefix:    cfg.Revocation.Prefix,
		OpTimeout: cfg.Revocation.OpTimeout,
	})

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		config:     cfg,
		jwtManager: jm,
		store:      store,
		metrics:    NewMetrics(cfg.Metrics),
		log:        logger.Named("authgate"),
		now:        now,
	}

	// -------- FLOWS --------
	validateDeps := flows.ValidateDeps{
		Decode:      jm.Decode,
		Revocations: store,
	}
	revokeDeps := flows.RevokeDeps{
		Decode:             jm.Decode,
		Now:                now,
		TTL:                cfg.Revocation.TTL,
		CoverTokenLifetime: cfg.Revocation.CoverTokenLifetime,
		Leeway:             cfg.JWT.Leeway,
		Store:              store,
	}
	e.flows = flows.New(flows.Deps{
		Validate: validateDeps,
		Revoke:   revokeDeps,
		Refresh: flows.RefreshDeps{
			Validate:  validateDeps,
			Revoke:    revokeDeps,
			IssuePair: e.issuePairTokens,
		},
	})

	// -------- AUDIT --------
	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = audit.NewZapSink(logger)
		}
		e.audit = audit.NewDispatcher(audit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink, logger)
	}

	b.built = true
	return e, nil
}
