package authcore

import (
	"context"
	"errors"

	"github.com/feedbackos/authcore/record"
)

// throttlePhase selects which of the two counters a check applies to.
type throttlePhase int

const (
	// phaseRequest covers (re)issuing the throttled resource.
	phaseRequest throttlePhase = iota
	// phaseAttempt covers failed verifications of the issued resource.
	phaseAttempt
)

// checkThrottle bounds how often a subject may perform a sensitive action
// within the record's TTL window. The two counters are independent:
// requestCount tracks issuance, attemptCount tracks failed verifications.
// The attempt phase runs only on a mismatched code, so a successful
// verification never consumes an attempt and the correct code stays
// verifiable after the budget is gone. Attempts never reset on new
// requests; only full record replacement (or natural expiry) clears them.
//
// Returns nil when no record exists: first use, the caller creates the
// initial record itself (requestCount=1). Otherwise returns the record as
// it was before the increment, so the caller can read the authoritative
// embedded state.
//
// Failure modes, in order of precedence:
//   - request counter at maxLimit: ErrTooManyRequests
//   - attempt counter at maxLimit: ErrAttemptsExhausted
//   - request phase while attempts are already exhausted:
//     ErrAttemptsExhausted (a fresh code cannot reset a burned attempt
//     budget; the lock holds until the record expires)
//
// Both carry a retry-after hint equal to the record's remaining TTL.
// Limits are read from the engine config on every call, never cached.
func (e *Engine) checkThrottle(ctx context.Context, purpose record.Purpose, identifier string, phase throttlePhase, maxLimit int) (*otpRecord, error) {
	rec, err := e.otp.Get(ctx, purpose, identifier)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	attemptLimit := e.config.OTP.AttemptLimit

	count := rec.RequestCount
	if phase == phaseAttempt {
		count = rec.AttemptCount
	}

	if count >= maxLimit {
		retryAfter, ttlErr := e.otp.TTL(ctx, purpose, identifier)
		if ttlErr != nil {
			return nil, ttlErr
		}
		if phase == phaseRequest {
			e.metricInc(MetricOTPRateLimited)
			return nil, rateLimited(ErrTooManyRequests, retryAfter)
		}
		e.metricInc(MetricOTPExhausted)
		return nil, rateLimited(ErrAttemptsExhausted, retryAfter)
	}

	if phase == phaseRequest && rec.AttemptCount >= attemptLimit {
		retryAfter, ttlErr := e.otp.TTL(ctx, purpose, identifier)
		if ttlErr != nil {
			return nil, ttlErr
		}
		e.metricInc(MetricOTPExhausted)
		return nil, rateLimited(ErrAttemptsExhausted, retryAfter)
	}

	updated := *rec
	if phase == phaseRequest {
		updated.RequestCount++
	} else {
		updated.AttemptCount++
	}

	// Rewrite under UpdateOnly with the window refreshed. If the record
	// expired between read and write the update is a no-op; the next read
	// observes absence and the flow restarts cleanly.
	if err := e.otp.Update(ctx, purpose, identifier, &updated, e.config.OTP.TTL); err != nil && !errors.Is(err, record.ErrRecordMissing) {
		return nil, err
	}

	return rec, nil
}
