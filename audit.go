package authgate

import (
	"context"
	"errors"
	"io"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/revocation"
	"go.uber.org/zap"
)

// AuditEvent is one structured audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers events on a channel; useful in tests and for fan-out.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// ZapSink logs events through a zap logger.
type ZapSink = audit.ZapSink

// NewChannelSink returns a sink that forwards events to a buffered channel.
func NewChannelSink(buffer int) *ChannelSink       { return audit.NewChannelSink(buffer) }
func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }
func NewZapSink(log *zap.Logger) *ZapSink           { return audit.NewZapSink(log) }

const (
	AuditEventAccessIssued   = "access_token_issued"
	AuditEventRefreshIssued  = "refresh_token_issued"
	AuditEventRevoked        = "token_revoked"
	AuditEventRefreshRotated = "refresh_rotated"
	AuditEventRefreshReuse   = "refresh_reuse_detected"
	AuditEventRefreshFailed  = "refresh_failed"
	AuditEventLogout         = "logout"
)

// auditErrorCode maps internal errors onto a small fixed vocabulary so audit consumers never
// see raw error strings.
func auditErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, revocation.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrIssueFailed):
		return "issue_failed"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	default:
		return "internal_error"
	}
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent, err error) {
	if e == nil || e.audit == nil {
		return
	}
	event.Timestamp = e.now().UTC()
	event.Success = err == nil
	event.Error = auditErrorCode(err)
	if event.Metadata == nil {
		if rid := RequestIDFromContext(ctx); rid != "" {
			event.Metadata = map[string]string{"request_id": rid}
		}
	}
	e.audit.Emit(ctx, event)
}

func auditForClaims(eventType, token string, c *Claims) AuditEvent {
	ev := AuditEvent{EventType: eventType}
	if token != "" {
		ev.Fingerprint = revocation.Fingerprint(token)
	}
	if c != nil {
		ev.UserID = c.Subject
		ev.TokenType = string(c.Type)
		ev.TokenID = c.ID
	}
	return ev
}

