package authcore

import (
	"context"
	"errors"
	"fmt"

	internalaudit "github.com/feedbackos/authcore/internal/audit"
	"github.com/feedbackos/authcore/jwt"
	"github.com/feedbackos/authcore/password"
	"github.com/feedbackos/authcore/record"
)

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// All mutable state lives in the shared store; one Engine is safe for
// concurrent use across request handlers without additional locking.
type Engine struct {
	config       Config
	records      *record.Store
	otp          *otpStore
	jwtManager   *jwt.Manager
	passwordHash *password.Hasher
	userProvider UserProvider
	mailer       Mailer
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
}

// Close drains the audit dispatcher. The injected store client is owned
// by the caller and is not closed here.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Records exposes the underlying ephemeral record store for callers that
// need purpose-scoped state outside the built-in flows (the "cached"
// purpose, custom passthrough purposes).
func (e *Engine) Records() *record.Store {
	if e == nil {
		return nil
	}
	return e.records
}

// AccessTokenTTL reports the configured access-token lifetime, which
// callers need when persisting refreshed tokens on clients.
func (e *Engine) AccessTokenTTL() (ttl int64) {
	if e == nil {
		return 0
	}
	return int64(e.config.JWT.AccessTTL.Seconds())
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.TakeSnapshot()
}

// AuditDropped reports how many audit events were discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.records == nil || e.jwtManager == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}
	return nil
}

// lookupUserByEmail normalizes identity-store failures: absence surfaces
// as ErrUserNotFound, everything else as infrastructure.
func (e *Engine) lookupUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return user, nil
}

func (e *Engine) lookupUserByID(ctx context.Context, userID string) (UserRecord, error) {
	user, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return user, nil
}

func (e *Engine) sendMail(ctx context.Context, to, subject, body string) {
	if e.mailer == nil {
		return
	}
	// Delivery failures are the transport's concern; the challenge result
	// already carries the authoritative code.
	_ = e.mailer.Send(ctx, to, subject, body)
}
