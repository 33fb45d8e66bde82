package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	user := env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")

	got, tokens, err := env.engine.Login(ctx, "a@x.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.UserID != user.UserID {
		t.Fatalf("unexpected user: %+v", got)
	}

	auth, err := env.engine.Authenticate(ctx, tokens.AccessToken, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if auth.UserID != user.UserID {
		t.Fatalf("subject mismatch: %s", auth.UserID)
	}
	if auth.RefreshedAccessToken != "" {
		t.Fatal("valid access token should not trigger a refresh")
	}
}

func TestLoginCollapsesFailureCauses(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")

	if _, _, err := env.engine.Login(ctx, "a@x.com", "wrong password!!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, err := env.engine.Login(ctx, "ghost@x.com", "correct horse battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestExpiredAccessRefreshesWithCurrentRoles(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.AccessTTL = 20 * time.Millisecond
	env := newTestEngine(t, cfg)
	ctx := context.Background()

	user := env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")
	_, tokens, err := env.engine.Login(ctx, "a@x.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	// Roles changed after the access token was minted; the refreshed token
	// must carry the current set.
	env.provider.setRoles(user.UserID, []string{"user", "organization_admin"})

	auth, err := env.engine.Authenticate(ctx, tokens.AccessToken, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Authenticate after expiry: %v", err)
	}
	if auth.UserID != user.UserID {
		t.Fatalf("subject mismatch: %s", auth.UserID)
	}
	if auth.RefreshedAccessToken == "" {
		t.Fatal("expected a refreshed access token")
	}
	found := false
	for _, r := range auth.Roles {
		if r == "organization_admin" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected updated roles, got %v", auth.Roles)
	}

	// The refreshed token verifies on its own.
	again, err := env.engine.Authenticate(ctx, auth.RefreshedAccessToken, "")
	if err != nil {
		t.Fatalf("Authenticate with refreshed token: %v", err)
	}
	if !contains(again.Roles, "organization_admin") {
		t.Fatalf("refreshed token lost roles: %v", again.Roles)
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func TestRefreshForDeletedUserRevokesCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.AccessTTL = 20 * time.Millisecond
	env := newTestEngine(t, cfg)
	ctx := context.Background()

	user := env.mustSignUp(t, "a@x.com", "Alice", "correct horse battery")
	_, tokens, err := env.engine.Login(ctx, "a@x.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	env.provider.delete(user.UserID)

	_, err = env.engine.Authenticate(ctx, tokens.AccessToken, tokens.RefreshToken)
	if !errors.Is(err, ErrCredentialsRevoked) {
		t.Fatalf("expected ErrCredentialsRevoked, got %v", err)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatal("ErrCredentialsRevoked must unwrap to ErrUnauthorized")
	}
}

func TestAuthenticateRejectsMissingAndGarbageTokens(t *testing.T) {
	env := newTestEngine(t, testConfig())
	ctx := context.Background()

	if _, err := env.engine.Authenticate(ctx, "", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for no tokens, got %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, "garbage", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for garbage access token, got %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, "", "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for garbage refresh token, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	env := newTestEngine(t, testConfig())

	result := &AuthResult{UserID: "u1", Roles: []string{"user"}}

	if err := env.engine.Authorize(result); err != nil {
		t.Fatalf("no required roles should pass: %v", err)
	}
	if err := env.engine.Authorize(result, "user"); err != nil {
		t.Fatalf("matching role should pass: %v", err)
	}
	if err := env.engine.Authorize(result, "organization_admin"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := env.engine.Authorize(nil, "user"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for nil result, got %v", err)
	}
}
