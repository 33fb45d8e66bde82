package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/feedbackos/authcore/record"
)

var (
	// ErrEngineNotReady is an exported constant or variable used by the control plane.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidEmail is an exported constant or variable used by the control plane.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrEmailTaken is an exported constant or variable used by the control plane.
	ErrEmailTaken = errors.New("email already in use")
	// ErrPasswordPolicy is an exported constant or variable used by the control plane.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrSignUpDisabled is an exported constant or variable used by the control plane.
	ErrSignUpDisabled = errors.New("sign-up flow disabled")
	// ErrPasswordResetDisabled is an exported constant or variable used by the control plane.
	ErrPasswordResetDisabled = errors.New("password reset flow disabled")
	// ErrEmailChangeDisabled is an exported constant or variable used by the control plane.
	ErrEmailChangeDisabled = errors.New("email change flow disabled")
	// ErrJoinCodesDisabled is an exported constant or variable used by the control plane.
	ErrJoinCodesDisabled = errors.New("join code flow disabled")
	// ErrTooManyRequests is an exported constant or variable used by the control plane.
	ErrTooManyRequests = errors.New("too many otp requests")
	// ErrAttemptsExhausted locks a subject's OTP record once its attempt
	// budget is gone: further mismatched attempts and fresh requests both
	// fail with it until the record expires. The correct code is never
	// locked out; only mismatches burn attempts.
	ErrAttemptsExhausted = errors.New("attempts exhausted for this otp")
	// ErrOTPNotFound deliberately covers both "never existed" and "expired"
	// so the error message cannot be used as an enumeration oracle.
	ErrOTPNotFound = errors.New("otp expired or invalid")
	// ErrOTPInvalid is an exported constant or variable used by the control plane.
	ErrOTPInvalid = errors.New("invalid otp")
	// ErrInvalidCredentials is an exported constant or variable used by the control plane.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is an exported constant or variable used by the control plane.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCredentialsRevoked signals that both bearer artifacts must be
	// cleared by the caller: the subject behind them no longer exists.
	ErrCredentialsRevoked = fmt.Errorf("%w: subject no longer exists", ErrUnauthorized)
	// ErrForbidden is an exported constant or variable used by the control plane.
	ErrForbidden = errors.New("insufficient role")
	// ErrResetSessionInvalid is an exported constant or variable used by the control plane.
	ErrResetSessionInvalid = errors.New("password reset session invalid")
	// ErrUserNotFound is an exported constant or variable used by the control plane.
	ErrUserNotFound = errors.New("user not found")
	// ErrJoinCodeInvalid is an exported constant or variable used by the control plane.
	ErrJoinCodeInvalid = errors.New("join code expired or invalid")
	// ErrJoinCodeNotFound is an exported constant or variable used by the control plane.
	ErrJoinCodeNotFound = errors.New("join code not found")
	// ErrJoinCodeLimit is an exported constant or variable used by the control plane.
	ErrJoinCodeLimit = errors.New("join code generation limit reached")
	// ErrJoinCodePaused is an exported constant or variable used by the control plane.
	ErrJoinCodePaused = errors.New("join code generation paused")
	// ErrAlreadyMember is an exported constant or variable used by the control plane.
	ErrAlreadyMember = errors.New("already a member of this organization")
	// ErrAlreadyAdmin is an exported constant or variable used by the control plane.
	ErrAlreadyAdmin = errors.New("already the admin of this organization")
	// ErrMemberElsewhere is an exported constant or variable used by the control plane.
	ErrMemberElsewhere = errors.New("already a member of another organization")

	// ErrStoreUnavailable is the infrastructure-class failure: the shared
	// store could not be reached. Always fatal to the in-flight request;
	// never retried inline.
	ErrStoreUnavailable = record.ErrStoreUnavailable
)

// RateLimitError wraps a 429-class sentinel with a retry-after hint equal
// to the remaining TTL of the throttling record or window.
type RateLimitError struct {
	Kind       error
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%v (retry after %s)", e.Kind, e.RetryAfter.Round(time.Second))
	}
	return e.Kind.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Kind
}

func rateLimited(kind error, retryAfter time.Duration) error {
	return &RateLimitError{Kind: kind, RetryAfter: retryAfter}
}
