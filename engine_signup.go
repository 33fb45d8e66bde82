package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/feedbackos/authcore/internal"
	"github.com/feedbackos/authcore/record"
)

// RequestSignUp opens (or re-arms) a sign-up challenge for email. The
// plaintext password is hashed immediately; only the digest enters the
// ephemeral record, alongside the profile fields needed to create the
// account once the code is verified.
//
// At most one challenge is live per email: while a record exists, repeat
// requests re-deliver the embedded code (Reissued=true) instead of
// minting a new one, and the original password digest stays authoritative.
//
// RequestSignUp may return an error when input validation, dependency calls, or security checks fail.
// Notable failures: [ErrEmailTaken], [ErrTooManyRequests],
// [ErrAttemptsExhausted] (both as [RateLimitError]).
func (e *Engine) RequestSignUp(ctx context.Context, email, name, plaintext string) (*OTPChallenge, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.config.SignUp.Enabled {
		return nil, ErrSignUpDisabled
	}
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if err := e.checkPasswordPolicy(plaintext); err != nil {
		return nil, err
	}

	if _, err := e.lookupUserByEmail(ctx, email); err == nil {
		e.emitAudit(ctx, auditFailure(auditEventSignUpRequest, email, ErrEmailTaken))
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	rec, err := e.checkThrottle(ctx, record.PurposeSignUpOTP, email, phaseRequest, e.config.OTP.RequestLimit)
	if err != nil {
		e.emitAudit(ctx, auditFailure(auditEventSignUpRequest, email, err))
		return nil, err
	}

	if rec != nil {
		return e.reissueSignUp(ctx, email, rec)
	}

	hash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := internal.NewOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	fresh := &otpRecord{
		Code:         code,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		RequestCount: 1,
	}
	if err := e.otp.Create(ctx, record.PurposeSignUpOTP, email, fresh, e.config.OTP.TTL); err != nil {
		if errors.Is(err, record.ErrRecordExists) {
			// Lost the creation race; the winner's code is authoritative.
			winner, getErr := e.otp.Get(ctx, record.PurposeSignUpOTP, email)
			if getErr != nil {
				return nil, getErr
			}
			if winner != nil {
				return e.reissueSignUp(ctx, email, winner)
			}
			return nil, ErrOTPNotFound
		}
		return nil, err
	}

	e.metricInc(MetricSignUpOTPRequested)
	e.emitAudit(ctx, auditSuccess(auditEventSignUpRequest, email))
	e.sendMail(ctx, email, "Your verification code", code)

	return &OTPChallenge{
		Email:     email,
		Code:      code,
		ExpiresIn: e.config.OTP.TTL,
	}, nil
}

func (e *Engine) reissueSignUp(ctx context.Context, email string, rec *otpRecord) (*OTPChallenge, error) {
	ttl, err := e.otp.TTL(ctx, record.PurposeSignUpOTP, email)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = e.config.OTP.TTL
	}

	e.metricInc(MetricSignUpOTPReissued)
	e.emitAudit(ctx, auditSuccess(auditEventSignUpRequest, email))
	e.sendMail(ctx, email, "Your verification code", rec.Code)

	return &OTPChallenge{
		Email:     email,
		Code:      rec.Code,
		ExpiresIn: ttl,
		Reissued:  true,
	}, nil
}

// ConfirmSignUp verifies the challenge code and, on match, creates the
// account from the staged record and consumes it. Only a mismatched code
// burns an attempt: once the attempt budget is gone, further mismatches
// fail with [ErrAttemptsExhausted] until the record expires, but the
// correct code still verifies.
//
// ConfirmSignUp may return an error when input validation, dependency calls, or security checks fail.
// Notable failures: [ErrOTPNotFound], [ErrOTPInvalid], [ErrAttemptsExhausted].
func (e *Engine) ConfirmSignUp(ctx context.Context, email, code string) (*SignUpResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.config.SignUp.Enabled {
		return nil, ErrSignUpDisabled
	}

	rec, err := e.otp.Get(ctx, record.PurposeSignUpOTP, email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		e.emitAudit(ctx, auditFailure(auditEventSignUpConfirm, email, ErrOTPNotFound))
		return nil, ErrOTPNotFound
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		if _, thrErr := e.checkThrottle(ctx, record.PurposeSignUpOTP, email, phaseAttempt, e.config.OTP.AttemptLimit); thrErr != nil {
			e.emitAudit(ctx, auditFailure(auditEventSignUpConfirm, email, thrErr))
			return nil, thrErr
		}
		e.metricInc(MetricOTPRejected)
		e.emitAudit(ctx, auditFailure(auditEventSignUpConfirm, email, ErrOTPInvalid))
		return nil, ErrOTPInvalid
	}

	user, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Email:        email,
		Name:         rec.Name,
		PasswordHash: rec.PasswordHash,
		Roles:        []string{e.config.SignUp.DefaultRole},
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			_ = e.otp.Delete(ctx, record.PurposeSignUpOTP, email)
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.otp.Delete(ctx, record.PurposeSignUpOTP, email); err != nil {
		return nil, err
	}

	e.metricInc(MetricSignUpCompleted)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventSignUpConfirm,
		Subject:   email,
		UserID:    user.UserID,
		Success:   true,
	})

	result := &SignUpResult{User: user}
	if e.config.SignUp.AutoLogin {
		tokens, err := e.IssueTokens(ctx, user)
		if err != nil {
			return nil, err
		}
		result.Tokens = tokens
	}
	return result, nil
}
