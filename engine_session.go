package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/feedbackos/authcore/jwt"
)

// Login verifies email/password and issues a fresh token pair.
// Verification failures collapse into [ErrInvalidCredentials] regardless
// of whether the email or the password was wrong.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (UserRecord, *TokenPair, error) {
	if err := e.ready(); err != nil {
		return UserRecord{}, nil, err
	}

	user, err := e.lookupUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditFailure(auditEventLogin, email, ErrInvalidCredentials))
			return UserRecord{}, nil, ErrInvalidCredentials
		}
		return UserRecord{}, nil, err
	}

	ok, err := e.passwordHash.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditFailure(auditEventLogin, email, ErrInvalidCredentials))
		return UserRecord{}, nil, ErrInvalidCredentials
	}

	tokens, err := e.IssueTokens(ctx, user)
	if err != nil {
		return UserRecord{}, nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLogin,
		Subject:   email,
		UserID:    user.UserID,
		Success:   true,
	})
	return user, tokens, nil
}

// IssueTokens mints an access/refresh pair for an already-verified user.
// The refresh token is stateless: revocation happens by deleting the
// subject from the identity store, which [Engine.Authenticate] checks on
// every refresh.
//
// IssueTokens may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) IssueTokens(ctx context.Context, user UserRecord) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	access, err := e.jwtManager.CreateAccess(user.UserID, user.Roles)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}
	refresh, err := e.jwtManager.CreateRefresh(user.UserID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Authenticate resolves the caller's identity from the two bearer
// artifacts. A valid access token answers directly. An expired or absent
// access token falls through to the refresh token: when it verifies and
// its subject still exists, a new access token is minted with the
// subject's CURRENT roles and returned in RefreshedAccessToken for the
// caller to persist client-side.
//
// A refresh whose subject no longer exists fails with
// [ErrCredentialsRevoked]; callers should clear both artifacts.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) Authenticate(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	if accessToken != "" {
		claims, err := e.jwtManager.ParseAccess(accessToken)
		if err == nil {
			return &AuthResult{UserID: claims.Subject, Roles: claims.Roles}, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrUnauthorized
		}
		// Expired: fall through to the refresh token.
	}

	if refreshToken == "" {
		return nil, ErrUnauthorized
	}

	refreshClaims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshRejected)
		e.emitAudit(ctx, auditFailure(auditEventRefresh, "", ErrUnauthorized))
		return nil, ErrUnauthorized
	}

	user, err := e.lookupUserByID(ctx, refreshClaims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricRefreshRejected)
			e.emitAudit(ctx, auditFailure(auditEventRefresh, refreshClaims.Subject, ErrCredentialsRevoked))
			return nil, ErrCredentialsRevoked
		}
		return nil, err
	}

	access, err := e.jwtManager.CreateAccess(user.UserID, user.Roles)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	e.metricInc(MetricAccessRefreshed)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventRefresh,
		Subject:   user.Email,
		UserID:    user.UserID,
		Success:   true,
	})
	return &AuthResult{
		UserID:               user.UserID,
		Roles:                user.Roles,
		RefreshedAccessToken: access,
	}, nil
}

// Authorize checks that an authenticated caller holds at least one of the
// required roles. With no required roles it always passes.
//
// Authorize may return an error when input validation, dependency calls, or security checks fail.
func (e *Engine) Authorize(result *AuthResult, requiredRoles ...string) error {
	if result == nil {
		return ErrUnauthorized
	}
	if len(requiredRoles) == 0 {
		return nil
	}
	for _, required := range requiredRoles {
		for _, role := range result.Roles {
			if role == required {
				return nil
			}
		}
	}
	return ErrForbidden
}
