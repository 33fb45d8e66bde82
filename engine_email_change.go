package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/feedbackos/authcore/internal"
	"github.com/feedbackos/authcore/record"
)

// RequestEmailChange opens (or re-arms) a challenge proving the caller
// controls newEmail before the identity record is updated. The record is
// keyed by the NEW address: throttling follows the address being claimed,
// not the account claiming it.
//
// RequestEmailChange may return an error when input validation, dependency calls, or security checks fail.
// Notable failures: [ErrEmailTaken], [ErrTooManyRequests], [ErrAttemptsExhausted].
func (e *Engine) RequestEmailChange(ctx context.Context, userID, newEmail string) (*OTPChallenge, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.config.EmailChange.Enabled {
		return nil, ErrEmailChangeDisabled
	}
	if !validEmail(newEmail) {
		return nil, ErrInvalidEmail
	}

	if _, err := e.lookupUserByID(ctx, userID); err != nil {
		return nil, err
	}

	if _, err := e.lookupUserByEmail(ctx, newEmail); err == nil {
		e.emitAudit(ctx, auditFailure(auditEventEmailChangeRequest, newEmail, ErrEmailTaken))
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	rec, err := e.checkThrottle(ctx, record.PurposeEmailChangeOTP, newEmail, phaseRequest, e.config.OTP.RequestLimit)
	if err != nil {
		e.emitAudit(ctx, auditFailure(auditEventEmailChangeRequest, newEmail, err))
		return nil, err
	}

	if rec != nil {
		return e.reissueEmailChange(ctx, newEmail, rec)
	}

	code, err := internal.NewOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	fresh := &otpRecord{
		Code:         code,
		Email:        newEmail,
		UserID:       userID,
		RequestCount: 1,
	}
	if err := e.otp.Create(ctx, record.PurposeEmailChangeOTP, newEmail, fresh, e.config.OTP.TTL); err != nil {
		if errors.Is(err, record.ErrRecordExists) {
			winner, getErr := e.otp.Get(ctx, record.PurposeEmailChangeOTP, newEmail)
			if getErr != nil {
				return nil, getErr
			}
			if winner != nil {
				return e.reissueEmailChange(ctx, newEmail, winner)
			}
			return nil, ErrOTPNotFound
		}
		return nil, err
	}

	e.metricInc(MetricEmailChangeRequested)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventEmailChangeRequest,
		Subject:   newEmail,
		UserID:    userID,
		Success:   true,
	})
	e.sendMail(ctx, newEmail, "Confirm your new email address", code)

	return &OTPChallenge{Email: newEmail, Code: code, ExpiresIn: e.config.OTP.TTL}, nil
}

func (e *Engine) reissueEmailChange(ctx context.Context, newEmail string, rec *otpRecord) (*OTPChallenge, error) {
	ttl, err := e.otp.TTL(ctx, record.PurposeEmailChangeOTP, newEmail)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = e.config.OTP.TTL
	}

	e.metricInc(MetricEmailChangeRequested)
	e.sendMail(ctx, newEmail, "Confirm your new email address", rec.Code)

	return &OTPChallenge{Email: newEmail, Code: rec.Code, ExpiresIn: ttl, Reissued: true}, nil
}

// ConfirmEmailChange verifies the challenge code and installs newEmail on
// the record's user. The record binds the challenge to the user that
// opened it; a different caller presenting a stolen code gets
// [ErrOTPInvalid], not a silent account takeover.
//
// ConfirmEmailChange may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) ConfirmEmailChange(ctx context.Context, userID, newEmail, code string) (UserRecord, error) {
	if err := e.ready(); err != nil {
		return UserRecord{}, err
	}
	if !e.config.EmailChange.Enabled {
		return UserRecord{}, ErrEmailChangeDisabled
	}

	rec, err := e.otp.Get(ctx, record.PurposeEmailChangeOTP, newEmail)
	if err != nil {
		return UserRecord{}, err
	}
	if rec == nil {
		return UserRecord{}, ErrOTPNotFound
	}

	if rec.UserID != userID || subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		if _, thrErr := e.checkThrottle(ctx, record.PurposeEmailChangeOTP, newEmail, phaseAttempt, e.config.OTP.AttemptLimit); thrErr != nil {
			e.emitAudit(ctx, auditFailure(auditEventEmailChangeConfirm, newEmail, thrErr))
			return UserRecord{}, thrErr
		}
		e.metricInc(MetricOTPRejected)
		e.emitAudit(ctx, auditFailure(auditEventEmailChangeConfirm, newEmail, ErrOTPInvalid))
		return UserRecord{}, ErrOTPInvalid
	}

	user, err := e.userProvider.UpdateUser(ctx, userID, UserChanges{Email: &rec.Email})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrUserNotFound
		}
		if errors.Is(err, ErrEmailTaken) {
			_ = e.otp.Delete(ctx, record.PurposeEmailChangeOTP, newEmail)
			return UserRecord{}, ErrEmailTaken
		}
		return UserRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.otp.Delete(ctx, record.PurposeEmailChangeOTP, newEmail); err != nil {
		return UserRecord{}, err
	}

	e.metricInc(MetricEmailChangeCompleted)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventEmailChangeConfirm,
		Subject:   newEmail,
		UserID:    userID,
		Success:   true,
	})
	return user, nil
}
