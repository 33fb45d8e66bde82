package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/feedbackos/authcore/internal"
	"github.com/feedbackos/authcore/record"
)

// resetSessionRecord is the privileged session opened after a successful
// reset-OTP verification. It is keyed by the subject's email under the
// reset-password-token purpose; the session ID binds the record to exactly
// one issued reset token.
type resetSessionRecord struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// RequestPasswordReset opens (or re-arms) a reset challenge for email.
// To keep account enumeration impossible, an unknown email returns the
// same [ErrOTPNotFound] class the verification path uses rather than a
// distinct "no such account" error. The audit trail still records the
// real cause.
//
// RequestPasswordReset may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (*OTPChallenge, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.config.PasswordReset.Enabled {
		return nil, ErrPasswordResetDisabled
	}
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}

	user, err := e.lookupUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditFailure(auditEventResetRequest, email, ErrUserNotFound))
			return nil, ErrOTPNotFound
		}
		return nil, err
	}

	rec, err := e.checkThrottle(ctx, record.PurposeResetPasswordOTP, email, phaseRequest, e.config.OTP.RequestLimit)
	if err != nil {
		e.emitAudit(ctx, auditFailure(auditEventResetRequest, email, err))
		return nil, err
	}

	if rec != nil {
		return e.reissueReset(ctx, email, rec)
	}

	code, err := internal.NewOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	fresh := &otpRecord{
		Code:         code,
		Email:        email,
		UserID:       user.UserID,
		RequestCount: 1,
	}
	if err := e.otp.Create(ctx, record.PurposeResetPasswordOTP, email, fresh, e.config.OTP.TTL); err != nil {
		if errors.Is(err, record.ErrRecordExists) {
			winner, getErr := e.otp.Get(ctx, record.PurposeResetPasswordOTP, email)
			if getErr != nil {
				return nil, getErr
			}
			if winner != nil {
				return e.reissueReset(ctx, email, winner)
			}
			return nil, ErrOTPNotFound
		}
		return nil, err
	}

	e.metricInc(MetricResetOTPRequested)
	e.emitAudit(ctx, auditSuccess(auditEventResetRequest, email))
	e.sendMail(ctx, email, "Your password reset code", code)

	return &OTPChallenge{Email: email, Code: code, ExpiresIn: e.config.OTP.TTL}, nil
}

func (e *Engine) reissueReset(ctx context.Context, email string, rec *otpRecord) (*OTPChallenge, error) {
	ttl, err := e.otp.TTL(ctx, record.PurposeResetPasswordOTP, email)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = e.config.OTP.TTL
	}

	e.metricInc(MetricResetOTPRequested)
	e.emitAudit(ctx, auditSuccess(auditEventResetRequest, email))
	e.sendMail(ctx, email, "Your password reset code", rec.Code)

	return &OTPChallenge{Email: email, Code: rec.Code, ExpiresIn: ttl, Reissued: true}, nil
}

// ConfirmResetOTP verifies the challenge code and exchanges it for a
// privileged reset token. The OTP record is consumed on success and a
// companion session record is opened; the returned token is only honored
// by [Engine.CompletePasswordReset] while that record is alive and its
// session ID matches.
//
// ConfirmResetOTP may return an error when input validation, dependency calls, or security checks fail.
// Notable failures: [ErrOTPNotFound], [ErrOTPInvalid], [ErrAttemptsExhausted].
func (e *Engine) ConfirmResetOTP(ctx context.Context, email, code string) (resetToken string, err error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if !e.config.PasswordReset.Enabled {
		return "", ErrPasswordResetDisabled
	}

	rec, err := e.otp.Get(ctx, record.PurposeResetPasswordOTP, email)
	if err != nil {
		return "", err
	}
	if rec == nil {
		e.emitAudit(ctx, auditFailure(auditEventResetConfirm, email, ErrOTPNotFound))
		return "", ErrOTPNotFound
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		if _, thrErr := e.checkThrottle(ctx, record.PurposeResetPasswordOTP, email, phaseAttempt, e.config.OTP.AttemptLimit); thrErr != nil {
			e.emitAudit(ctx, auditFailure(auditEventResetConfirm, email, thrErr))
			return "", thrErr
		}
		e.metricInc(MetricOTPRejected)
		e.emitAudit(ctx, auditFailure(auditEventResetConfirm, email, ErrOTPInvalid))
		return "", ErrOTPInvalid
	}

	if err := e.otp.Delete(ctx, record.PurposeResetPasswordOTP, email); err != nil {
		return "", err
	}

	sessionID := uuid.NewString()
	session := &resetSessionRecord{SessionID: sessionID, UserID: rec.UserID}
	key := record.Key(record.PurposeResetPasswordToken, email)
	if err := e.records.Put(ctx, key, session, e.config.PasswordReset.SessionTTL, record.PutAlways); err != nil {
		return "", err
	}

	token, err := e.jwtManager.CreateReset(email, sessionID)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricResetSessionOpened)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventResetConfirm,
		Subject:   email,
		UserID:    rec.UserID,
		Success:   true,
	})

	return token, nil
}

// CompletePasswordReset redeems a reset token and installs the new
// password. The token must parse, carry the reset purpose, and match the
// live session record's session ID; the record is consumed on success, so
// a token is good for exactly one reset.
//
// CompletePasswordReset may return an error when input validation, dependency calls, or security checks fail.
// Notable failures: [ErrResetSessionInvalid], [ErrPasswordPolicy].
func (e *Engine) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.config.PasswordReset.Enabled {
		return ErrPasswordResetDisabled
	}
	if err := e.checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	claims, err := e.jwtManager.ParseReset(resetToken)
	if err != nil {
		e.emitAudit(ctx, auditFailure(auditEventResetComplete, "", ErrResetSessionInvalid))
		return ErrResetSessionInvalid
	}
	email := claims.Subject

	key := record.Key(record.PurposeResetPasswordToken, email)
	session := &resetSessionRecord{}
	if err := e.records.GetJSON(ctx, key, session); err != nil {
		if errors.Is(err, record.ErrRecordNotFound) {
			e.emitAudit(ctx, auditFailure(auditEventResetComplete, email, ErrResetSessionInvalid))
			return ErrResetSessionInvalid
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(session.SessionID), []byte(claims.SessionID)) != 1 {
		e.emitAudit(ctx, auditFailure(auditEventResetComplete, email, ErrResetSessionInvalid))
		return ErrResetSessionInvalid
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := e.userProvider.UpdateUser(ctx, session.UserID, UserChanges{PasswordHash: &hash}); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrResetSessionInvalid
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if _, err := e.records.Delete(ctx, key); err != nil {
		return err
	}

	e.metricInc(MetricResetCompleted)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventResetComplete,
		Subject:   email,
		UserID:    session.UserID,
		Success:   true,
	})
	return nil
}
