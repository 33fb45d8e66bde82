package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feedbackos/authcore/record"
)

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	user := env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")

	challenge, err := env.engine.RequestPasswordReset(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	token, err := env.engine.ConfirmResetOTP(ctx, "a@x.com", challenge.Code)
	if err != nil {
		t.Fatalf("ConfirmResetOTP: %v", err)
	}
	if token == "" {
		t.Fatal("expected a reset token")
	}

	// The verified OTP is consumed with the exchange.
	if _, err := env.engine.ConfirmResetOTP(ctx, "a@x.com", challenge.Code); !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound after exchange, got %v", err)
	}

	if err := env.engine.CompletePasswordReset(ctx, token, "a brand new password"); err != nil {
		t.Fatalf("CompletePasswordReset: %v", err)
	}

	if _, _, err := env.engine.Login(ctx, "a@x.com", "correct horse battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should be dead, got %v", err)
	}
	got, _, err := env.engine.Login(ctx, "a@x.com", "a brand new password")
	if err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if got.UserID != user.UserID {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestPasswordResetTokenSingleUse(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")

	challenge, err := env.engine.RequestPasswordReset(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	token, err := env.engine.ConfirmResetOTP(ctx, "a@x.com", challenge.Code)
	if err != nil {
		t.Fatalf("ConfirmResetOTP: %v", err)
	}

	if err := env.engine.CompletePasswordReset(ctx, token, "a brand new password"); err != nil {
		t.Fatalf("first CompletePasswordReset: %v", err)
	}
	if err := env.engine.CompletePasswordReset(ctx, token, "yet another password"); !errors.Is(err, ErrResetSessionInvalid) {
		t.Fatalf("expected ErrResetSessionInvalid on reuse, got %v", err)
	}
}

func TestPasswordResetSessionBinding(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")

	first, err := env.engine.RequestPasswordReset(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	staleToken, err := env.engine.ConfirmResetOTP(ctx, "a@x.com", first.Code)
	if err != nil {
		t.Fatalf("ConfirmResetOTP: %v", err)
	}

	// A second verified OTP replaces the session record; the first token's
	// session id no longer matches.
	second, err := env.engine.RequestPasswordReset(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("second RequestPasswordReset: %v", err)
	}
	if _, err := env.engine.ConfirmResetOTP(ctx, "a@x.com", second.Code); err != nil {
		t.Fatalf("second ConfirmResetOTP: %v", err)
	}

	if err := env.engine.CompletePasswordReset(ctx, staleToken, "a brand new password"); !errors.Is(err, ErrResetSessionInvalid) {
		t.Fatalf("expected ErrResetSessionInvalid for superseded token, got %v", err)
	}
}

func TestPasswordResetSessionExpiry(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")

	challenge, err := env.engine.RequestPasswordReset(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	token, err := env.engine.ConfirmResetOTP(ctx, "a@x.com", challenge.Code)
	if err != nil {
		t.Fatalf("ConfirmResetOTP: %v", err)
	}

	// The companion record dies before the token's own expiry matters.
	advance(env, 11*time.Minute)

	if err := env.engine.CompletePasswordReset(ctx, token, "a brand new password"); !errors.Is(err, ErrResetSessionInvalid) {
		t.Fatalf("expected ErrResetSessionInvalid after session expiry, got %v", err)
	}
}

func TestPasswordResetCorrectCodeVerifiesAfterExhaustion(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")

	challenge, err := env.engine.RequestPasswordReset(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := env.engine.ConfirmResetOTP(ctx, "a@x.com", "000000"); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("attempt %d: expected ErrOTPInvalid, got %v", i+1, err)
		}
	}
	if _, err := env.engine.ConfirmResetOTP(ctx, "a@x.com", "000000"); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("expected ErrAttemptsExhausted on locked attempt, got %v", err)
	}

	// Only mismatches burn attempts; the real code still exchanges for a
	// reset token.
	token, err := env.engine.ConfirmResetOTP(ctx, "a@x.com", challenge.Code)
	if err != nil {
		t.Fatalf("ConfirmResetOTP with correct code after exhaustion: %v", err)
	}
	if err := env.engine.CompletePasswordReset(ctx, token, "a brand new password"); err != nil {
		t.Fatalf("CompletePasswordReset: %v", err)
	}
}

func TestPasswordResetReissueReportsRemainingWindow(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")

	first, err := env.engine.RequestPasswordReset(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	advance(env, 4*time.Minute)

	rec, err := env.engine.otp.Get(ctx, record.PurposeResetPasswordOTP, "a@x.com")
	if err != nil || rec == nil {
		t.Fatalf("expected live record, got rec=%v err=%v", rec, err)
	}

	challenge, err := env.engine.reissueReset(ctx, "a@x.com", rec)
	if err != nil {
		t.Fatalf("reissueReset: %v", err)
	}
	if !challenge.Reissued || challenge.Code != first.Code {
		t.Fatalf("expected reissue of the live code, got %+v", challenge)
	}
	// The reissue advertises the record's remaining window, not a fresh
	// full TTL.
	if challenge.ExpiresIn > 6*time.Minute {
		t.Fatalf("expected remaining window of at most 6m, got %v", challenge.ExpiresIn)
	}
	if challenge.ExpiresIn <= 0 {
		t.Fatalf("expected a positive remaining window, got %v", challenge.ExpiresIn)
	}
}

func TestPasswordResetUnknownEmailNotDistinguishable(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	_, err := env.engine.RequestPasswordReset(ctx, "ghost@x.com")
	if !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound for unknown email, got %v", err)
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Fatal("unknown email must not be distinguishable from an expired challenge")
	}
}

func TestPasswordResetRejectsGarbageToken(t *testing.T) {
	env := newTestEngine(t, testConfig())

	err := env.engine.CompletePasswordReset(context.Background(), "not.a.jwt", "a brand new password")
	if !errors.Is(err, ErrResetSessionInvalid) {
		t.Fatalf("expected ErrResetSessionInvalid, got %v", err)
	}
}

func TestPasswordResetRejectsAccessTokenAsResetToken(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")
	_, tokens, err := env.engine.Login(ctx, "a@x.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := env.engine.CompletePasswordReset(ctx, tokens.AccessToken, "a brand new password"); !errors.Is(err, ErrResetSessionInvalid) {
		t.Fatalf("expected ErrResetSessionInvalid for access token, got %v", err)
	}
}
