package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/revocation"
	"go.uber.org/zap"
)

// Engine is the token lifecycle manager. It is safe for concurrent use; all mutable state
// lives in the revocation store.
type Engine struct {
	config     Config
	jwtManager *jwt.Manager
	store      *revocation.Store
	flows      flows.Service
	audit      *audit.Dispatcher
	metrics    *Metrics
	log        *zap.Logger
	now        func() time.Time
}

// Close flushes and stops the audit dispatcher. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.jwtManager != nil && e.flows.Initialized()
}

/*
====================================
ISSUANCE
====================================
*/

// CreateAccessToken signs a short-lived access token for the user.
func (e *Engine) CreateAccessToken(ctx context.Context, userID, email string) (string, error) {
	return e.issue(ctx, userID, email, jwt.TypeAccess)
}

// CreateRefreshToken signs a long-lived refresh token for the user.
func (e *Engine) CreateRefreshToken(ctx context.Context, userID, email string) (string, error) {
	return e.issue(ctx, userID, email, jwt.TypeRefresh)
}

// IssuePair signs an access and a refresh token for the user.
func (e *Engine) IssuePair(ctx context.Context, userID, email string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}
	access, refresh, err := e.issuePairTokens(userID, email)
	if err != nil {
		return TokenPair{}, err
	}
	e.emitAudit(ctx, AuditEvent{EventType: AuditEventAccessIssued, UserID: userID, TokenType: string(jwt.TypeAccess)}, nil)
	e.emitAudit(ctx, AuditEvent{EventType: AuditEventRefreshIssued, UserID: userID, TokenType: string(jwt.TypeRefresh)}, nil)
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (e *Engine) issue(ctx context.Context, userID, email string, typ jwt.TokenType) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	tok, claims, err := e.sign(userID, email, typ)
	if err != nil {
		return "", err
	}
	event := AuditEventAccessIssued
	if typ == jwt.TypeRefresh {
		event = AuditEventRefreshIssued
	}
	e.emitAudit(ctx, auditForClaims(event, "", &claims), nil)
	return tok, nil
}

func (e *Engine) sign(userID, email string, typ jwt.TokenType) (string, jwt.Claims, error) {
	ttl := e.config.JWT.AccessTTL
	metric := MetricAccessIssued
	if typ == jwt.TypeRefresh {
		ttl = e.config.JWT.RefreshTTL
		metric = MetricRefreshIssued
	}
	tok, claims, err := e.jwtManager.Issue(userID, email, typ, ttl)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.log.Error("token issuance failed",
			zap.String("type", string(typ)),
			zap.String("user_id", userID),
			zap.Error(err))
		return "", jwt.Claims{}, fmt.Errorf("%w: %w", ErrIssueFailed, err)
	}
	e.metricInc(metric)
	return tok, claims, nil
}

func (e *Engine) issuePairTokens(userID, email string) (string, string, error) {
	access, _, err := e.sign(userID, email, jwt.TypeAccess)
	if err != nil {
		return "", "", err
	}
	refresh, _, err := e.sign(userID, email, jwt.TypeRefresh)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks signature, structure, expiry, type and revocation status. Every credential
// failure returns ErrTokenInvalid; ErrStoreUnavailable means revocation status could not be
// determined and the token must be treated as not validated.
//
// expected may be TokenAny to accept both token types.
func (e *Engine) Validate(ctx context.Context, token string, expected TokenType) (*Identity, error) {
	report := e.Inspect(ctx, token, expected)
	switch report.Failure {
	case FailureNone:
		return identityFromClaims(report.Claims), nil
	case FailureStoreUnavailable:
		return nil, ErrStoreUnavailable
	default:
		if errors.Is(report.Err, ErrEngineNotReady) {
			return nil, ErrEngineNotReady
		}
		return nil, ErrTokenInvalid
	}
}

// Inspect runs the same checks as Validate but returns the detailed failure kind. The detail is
// meant for logs and tests; it must not be shown to the presenter of the token.
func (e *Engine) Inspect(ctx context.Context, token string, expected TokenType) ValidationReport {
	if !e.ready() {
		return ValidationReport{Failure: FailureClaims, Err: ErrEngineNotReady}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	res := e.flows.Validate(ctx, token, expected)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	e.recordValidation(ctx, token, expected, res)
	return ValidationReport{Failure: res.Failure, Err: res.Err, Claims: res.Claims}
}

func (e *Engine) recordValidation(ctx context.Context, token string, expected TokenType, res flows.ValidateResult) {
	if res.OK() {
		e.metricInc(MetricValidateSuccess)
		return
	}
	e.metricInc(MetricValidateFailure)
	switch res.Failure {
	case FailureExpired:
		e.metricInc(MetricValidateExpired)
	case FailureTypeMismatch:
		e.metricInc(MetricValidateTypeMismatch)
	case FailureRevoked:
		e.metricInc(MetricValidateRevoked)
	case FailureStoreUnavailable:
		e.metricInc(MetricStoreUnavailable)
		e.log.Warn("revocation store unavailable during validation",
			zap.String("token_prefix", tokenPrefix(token)),
			zap.String("request_id", RequestIDFromContext(ctx)),
			zap.Error(res.Err))
		return
	}
	if ce := e.log.Check(zap.DebugLevel, "token validation failed"); ce != nil {
		ce.Write(
			zap.Stringer("reason", res.Failure),
			zap.String("expected", string(expected)),
			zap.String("token_prefix", tokenPrefix(token)),
			zap.String("request_id", RequestIDFromContext(ctx)),
		)
	}
}

// IsRevoked reports whether a revocation marker exists for token.
func (e *Engine) IsRevoked(ctx context.Context, token string) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}
	revoked, err := e.store.IsRevoked(ctx, token)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return revoked, nil
}

/*
====================================
REVOCATION
====================================
*/

// Revoke marks token as revoked. Revoking an already revoked token is not an error. Tokens
// that do not verify are still marked, with the configured fixed TTL.
func (e *Engine) Revoke(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrTokenMissing
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res := e.flows.Revoke(ctx, token)
	return e.finishRevoke(ctx, AuditEventRevoked, token, res)
}

func (e *Engine) finishRevoke(ctx context.Context, event, token string, res flows.RevokeResult) error {
	var err error
	if res.Err != nil {
		e.metricInc(MetricRevokeFailure)
		e.metricInc(MetricStoreUnavailable)
		e.log.Warn("revocation write failed",
			zap.String("token_prefix", tokenPrefix(token)),
			zap.Error(res.Err))
		err = fmt.Errorf("%w: %w", ErrStoreUnavailable, res.Err)
	} else {
		e.metricInc(MetricRevokeSuccess)
		e.log.Debug("token revoked",
			zap.String("token_prefix", tokenPrefix(token)),
			zap.Duration("ttl", res.TTL))
	}
	e.emitAudit(ctx, auditForClaims(event, token, res.Claims), err)
	return err
}

/*
====================================
REFRESH
====================================
*/

// Refresh rotates refreshToken: it must validate as a refresh token, a new pair is minted, and
// refreshToken is revoked. Each refresh token can be rotated once; a second presentation,
// including a concurrent one, fails with ErrTokenInvalid. No tokens are returned on failure.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res := e.flows.Refresh(ctx, refreshToken)
	failure := res.Failure
	if failure == flows.RefreshFailureInvalid && res.Validation == FailureRevoked {
		// A revoked refresh token is one that was already rotated or logged out.
		failure = flows.RefreshFailureReuse
	}
	switch failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.metricInc(MetricRevokeSuccess)
		e.emitAudit(ctx, auditForClaims(AuditEventRefreshRotated, refreshToken, res.Claims), nil)
		return TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil

	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.log.Warn("revoked refresh token presented",
			zap.String("user_id", subjectOf(res.Claims)),
			zap.String("token_prefix", tokenPrefix(refreshToken)))
		e.emitAudit(ctx, auditForClaims(AuditEventRefreshReuse, refreshToken, res.Claims), ErrTokenInvalid)
		return TokenPair{}, ErrTokenInvalid

	case flows.RefreshFailureStoreUnavailable:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricStoreUnavailable)
		e.log.Warn("refresh aborted: revocation store unavailable",
			zap.String("token_prefix", tokenPrefix(refreshToken)),
			zap.Error(res.Err))
		e.emitAudit(ctx, auditForClaims(AuditEventRefreshFailed, refreshToken, res.Claims), ErrStoreUnavailable)
		return TokenPair{}, ErrStoreUnavailable

	case flows.RefreshFailureIssue:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditForClaims(AuditEventRefreshFailed, refreshToken, res.Claims), ErrIssueFailed)
		return TokenPair{}, ErrIssueFailed

	default:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricValidateFailure)
		e.log.Debug("refresh rejected",
			zap.Stringer("reason", res.Validation),
			zap.String("token_prefix", tokenPrefix(refreshToken)))
		e.emitAudit(ctx, auditForClaims(AuditEventRefreshFailed, refreshToken, res.Claims), ErrTokenInvalid)
		return TokenPair{}, ErrTokenInvalid
	}
}

/*
====================================
LOGOUT
====================================
*/

// Logout revokes the presented access token. An empty token is a successful no-op.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res := e.flows.Logout(ctx, accessToken)
	if res.Skipped {
		e.metricInc(MetricLogoutNoToken)
		return nil
	}
	e.metricInc(MetricLogout)
	return e.finishRevoke(ctx, AuditEventLogout, accessToken, res.Revoke)
}

func subjectOf(c *Claims) string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// tokenPrefix returns the first 10 characters of a token for logging.
func tokenPrefix(token string) string {
	const n = 10
	if len(token) <= n {
		return token
	}
	return token[:n] + "..."
}
