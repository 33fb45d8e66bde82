package authcore

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/feedbackos/authcore/internal/audit"
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit
// dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

const (
	auditEventSignUpRequest      = "signup.otp.request"
	auditEventSignUpConfirm      = "signup.otp.confirm"
	auditEventResetRequest       = "reset.otp.request"
	auditEventResetConfirm       = "reset.otp.confirm"
	auditEventResetComplete      = "reset.complete"
	auditEventEmailChangeRequest = "email_change.otp.request"
	auditEventEmailChangeConfirm = "email_change.otp.confirm"
	auditEventLogin              = "session.login"
	auditEventRefresh            = "session.refresh"
	auditEventJoinCodeGenerate   = "join_code.generate"
	auditEventJoinCodeRedeem     = "join_code.redeem"
	auditEventJoinCodeInvalidate = "join_code.invalidate"
)

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	e.audit.Emit(ctx, event)
}

func auditFailure(eventType, subject string, err error) AuditEvent {
	event := AuditEvent{
		EventType: eventType,
		Subject:   subject,
	}
	if err != nil {
		event.Error = err.Error()
	}
	return event
}

func auditSuccess(eventType, subject string) AuditEvent {
	return AuditEvent{
		EventType: eventType,
		Subject:   subject,
		Success:   true,
	}
}
