package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"rentdesk/internal/core"
)

// CookieName is the session cookie set on login.
const CookieName = "token"

// ErrUnknownUser is returned by a RoleLookup for an account that was removed.
var ErrUnknownUser = errors.New("account no longer exists")

// RoleLookup returns the stored role of a user.
type RoleLookup func(ctx context.Context, userID string) (core.Role, error)

type ctxKey struct{}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// ClaimsFromContext returns the claims of the authenticated caller.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok && c != nil
}

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Require rejects requests without a valid token with 401.
func (tm *TokenManager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := TokenFromRequest(r)
		if tokenStr == "" {
			writeMessage(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		claims, err := tm.Validate(tokenStr)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireAdmin is Require plus a 403 for non-admin callers. When roles is
// set the stored role wins over the one in the token, so a demoted or
// removed admin loses access before the token expires.
func (tm *TokenManager) RequireAdmin(roles RoleLookup, next http.Handler) http.Handler {
	return tm.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		if roles != nil {
			role, err := roles(r.Context(), claims.UserID())
			switch {
			case errors.Is(err, ErrUnknownUser):
				writeMessage(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			case err != nil:
				writeMessage(w, http.StatusInternalServerError, "Could not verify account")
				return
			}
			current := *claims
			current.Role = role
			claims = &current
			r = r.WithContext(WithClaims(r.Context(), claims))
		}
		if !claims.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// SessionCookie builds the cookie carrying token. An empty token with a
// negative max age clears it.
func SessionCookie(token string, ttl time.Duration, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
