package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdesk/internal/core"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser(role core.Role) core.User {
	u := core.User{Name: "Efua", Email: "efua@example.com", Role: role}
	u.ID = "u-1"
	return u
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	tok, err := tm.Issue(testUser(core.RoleManager))
	require.NoError(t, err)

	claims, err := tm.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID())
	assert.Equal(t, core.RoleManager, claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestTokenRejected(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	tok, err := tm.Issue(testUser(core.RoleStaff))
	require.NoError(t, err)

	other := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)
	_, err = other.Validate(tok)
	assert.Error(t, err, "wrong secret")

	expired := NewTokenManager(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Validate(tok)
	assert.Error(t, err, "expired token")

	_, err = tm.Validate("not-a-token")
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	staffTok, _ := tm.Issue(testUser(core.RoleStaff))
	adminTok, _ := tm.Issue(testUser(core.RoleAdmin))

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, found := ClaimsFromContext(r.Context())
		require.True(t, found)
		w.Write([]byte(claims.Role))
	})

	tests := []struct {
		name    string
		handler http.Handler
		setup   func(r *http.Request)
		status  int
	}{
		{"no token", tm.Require(ok), func(r *http.Request) {}, http.StatusUnauthorized},
		{"bearer", tm.Require(ok), func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+staffTok) }, http.StatusOK},
		{"cookie", tm.Require(ok), func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: staffTok}) }, http.StatusOK},
		{"malformed header", tm.Require(ok), func(r *http.Request) { r.Header.Set("Authorization", staffTok) }, http.StatusUnauthorized},
		{"garbage token", tm.Require(ok), func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"admin route as staff", tm.RequireAdmin(nil, ok), func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+staffTok) }, http.StatusForbidden},
		{"admin route as admin", tm.RequireAdmin(nil, ok), func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminTok) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/view/profile_info", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"message"`)
			}
		})
	}
}

func TestRequireAdminUsesStoredRole(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	adminTok, _ := tm.Issue(testUser(core.RoleAdmin))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		w.Write([]byte(claims.Role))
	})
	stored := func(role core.Role, err error) RoleLookup {
		return func(_ context.Context, userID string) (core.Role, error) {
			assert.Equal(t, "u-1", userID)
			return role, err
		}
	}

	tests := []struct {
		name   string
		roles  RoleLookup
		status int
	}{
		{"still admin", stored(core.RoleAdmin, nil), http.StatusOK},
		{"demoted", stored(core.RoleStaff, nil), http.StatusForbidden},
		{"removed", stored("", fmt.Errorf("get user: %w", ErrUnknownUser)), http.StatusUnauthorized},
		{"lookup failed", stored("", errors.New("database is locked")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/get/all_users", nil)
			req.Header.Set("Authorization", "Bearer "+adminTok)
			rec := httptest.NewRecorder()
			tm.RequireAdmin(tt.roles, ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, string(core.RoleAdmin), rec.Body.String())
			}
		})
	}
}

func TestSessionCookie(t *testing.T) {
	c := SessionCookie("abc", 2*time.Hour, true)
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, 7200, c.MaxAge)

	cleared := SessionCookie("", time.Hour, false)
	assert.Equal(t, -1, cleared.MaxAge)
}
