package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	authcore "github.com/feedbackos/authcore"
)

// Cookie names the control plane reads and writes. The same pair of
// bearer artifacts may instead arrive via the Authorization header; the
// header wins when both are present.
const (
	AccessCookie  = "AT"
	RefreshCookie = "RT"
)

type authResultContextKey struct{}

// AuthResultFromContext retrieves the authentication result installed by
// [Guard].
func AuthResultFromContext(ctx context.Context) (*authcore.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authcore.AuthResult)
	return res, ok
}

// Guard authenticates each request through [authcore.Engine.Authenticate].
// An expired access token is refreshed silently: the new token is set as
// a fresh AT cookie before the handler runs. When the refresh subject no
// longer exists both cookies are cleared, so deleted accounts do not loop
// on failed refreshes.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			access, refresh := extractTokens(r)
			if access == "" && refresh == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.Authenticate(r.Context(), access, refresh)
			if err != nil {
				if errors.Is(err, authcore.ErrCredentialsRevoked) {
					clearAuthCookies(w)
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if res.RefreshedAccessToken != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     AccessCookie,
					Value:    res.RefreshedAccessToken,
					Path:     "/",
					Expires:  time.Now().Add(time.Duration(engine.AccessTokenTTL()) * time.Second),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route on at least one of the given roles. It must
// run inside [Guard]; without an authentication result in the context it
// rejects with 401.
func RequireRole(engine *authcore.Engine, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err := engine.Authorize(res, roles...); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractTokens(r *http.Request) (access, refresh string) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		access = token
	} else if c, err := r.Cookie(AccessCookie); err == nil {
		access = c.Value
	}
	if c, err := r.Cookie(RefreshCookie); err == nil {
		refresh = c.Value
	}
	return access, refresh
}

func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
