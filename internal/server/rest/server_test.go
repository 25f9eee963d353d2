package rest

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pd15/saocontacts/internal/server/models"
	"github.com/pd15/saocontacts/internal/server/services"
	"github.com/pd15/saocontacts/internal/server/session"
)

func TestAPI_RegisterVerifyLoginLogout(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "Alice@pd15.org", "password": "Secretpass1",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	reg := decode[registerResponse](t, rec)
	assert.Equal(t, services.MsgRegistered, reg.Message)
	assert.Equal(t, "alice@pd15.org", reg.User.Email)
	assert.False(t, reg.User.IsVerified)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(t, http.MethodPost, "/api/auth/verify", map[string]string{"email": "alice@pd15.org", "code": ts.code(t, "alice@pd15.org")}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.MsgVerified, decode[messageResponse](t, rec).Message)

	token := ts.signIn(t, "alice@pd15.org")

	rec = ts.do(t, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[session.Session](t, rec)
	assert.Equal(t, "alice", me.Username)
	assert.True(t, me.Authenticated)
	assert.False(t, me.Admin)

	rec = ts.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_ErrorStatuses(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice", "alice@pd15.org")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		msg    string
	}{
		{"foreign domain", "/api/auth/register", map[string]string{"username": "x", "email": "x@gmail.com", "password": "Secretpass1"},
			http.StatusBadRequest, "email must be from an authorized domain"},
		{"duplicate", "/api/auth/register", map[string]string{"username": "alice", "email": "alice@pd15.org", "password": "Secretpass1"},
			http.StatusConflict, "user with this email or username already exists"},
		{"missing field", "/api/auth/register", map[string]string{"username": "x"},
			http.StatusBadRequest, "email is required"},
		{"bad code shape", "/api/auth/verify", map[string]string{"email": "alice@pd15.org", "code": "12ab"},
			http.StatusBadRequest, "code must be 6 characters"},
		{"wrong code", "/api/auth/verify", map[string]string{"email": "alice@pd15.org", "code": "000000"},
			http.StatusBadRequest, "invalid verification code"},
		{"pin for unknown", "/api/auth/pin", map[string]string{"email": "ghost@pd15.org"},
			http.StatusNotFound, "user not found or not verified"},
		{"login without pin", "/api/auth/login", map[string]string{"email": "ghost@pd15.org", "pin": "123456"},
			http.StatusUnauthorized, "invalid email or no active PIN"},
		{"reset confirm wrong code", "/api/auth/password-reset/confirm", map[string]string{"email": "alice@pd15.org", "code": "123456", "new_password": "Newpassword1"},
			http.StatusBadRequest, "invalid reset code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, decode[errorResponse](t, rec).Error, tt.msg)
		})
	}
}

func TestAPI_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/register", "not-an-object", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid payload", decode[errorResponse](t, rec).Error)
}

func TestAPI_Lockout(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice", "alice@pd15.org")

	rec := ts.do(t, http.MethodPost, "/api/auth/pin", map[string]string{"email": "alice@pd15.org"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	pin := ts.code(t, "alice@pd15.org")
	wrong := "123456"
	if pin == wrong {
		wrong = "654321"
	}

	for i := 0; i < 5; i++ {
		rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@pd15.org", "pin": wrong}, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@pd15.org", "pin": pin}, "")
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "Try again in 30 minutes")

	for _, malformed := range []string{"12ab", "1234567", "abcdef"} {
		rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@pd15.org", "pin": malformed}, "")
		assert.Equal(t, http.StatusLocked, rec.Code, malformed)
	}
}

func TestAPI_LoginMalformedPINIsInvalidCredential(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice", "alice@pd15.org")

	rec := ts.do(t, http.MethodPost, "/api/auth/pin", map[string]string{"email": "alice@pd15.org"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@pd15.org", "pin": "12ab"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@pd15.org"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "pin is required")
}

func TestAPI_PasswordResetIsGeneric(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "alice", "alice@pd15.org")

	known := ts.do(t, http.MethodPost, "/api/auth/password-reset", map[string]string{"email": "alice@pd15.org"}, "")
	unknown := ts.do(t, http.MethodPost, "/api/auth/password-reset", map[string]string{"email": "ghost@pd15.org"}, "")
	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())

	rec := ts.do(t, http.MethodPost, "/api/auth/password-reset/confirm", map[string]string{
		"email": "alice@pd15.org", "code": ts.code(t, "alice@pd15.org"), "new_password": "Newpassword1",
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.MsgPasswordReset, decode[messageResponse](t, rec).Message)
}

func TestAPI_Admin(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "root", "root@pd15.org")
	require.NoError(t, ts.services.Admin.(*services.Gate).Bootstrap(context.Background(), "root@pd15.org"))
	rootToken := ts.signIn(t, "root@pd15.org")

	aliceToken := ts.signUp(t, "alice", "alice@pd15.org")

	rec := ts.do(t, http.MethodGet, "/api/admin/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/admin/users", nil, aliceToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin privileges required", decode[errorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/api/admin/users", nil, rootToken)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[usersResponse](t, rec).Users
	require.Len(t, users, 2)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(t, http.MethodGet, "/api/admin/stats", nil, rootToken)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[models.AccountStats](t, rec)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Admins)

	rec = ts.do(t, http.MethodPost, "/api/admin/users/ALICE%40pd15.org/promote", nil, rootToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "User alice@pd15.org is now an admin", decode[messageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodGet, "/api/admin/stats", nil, aliceToken)
	assert.Equal(t, http.StatusOK, rec.Code, "promotion reaches live sessions")

	rec = ts.do(t, http.MethodPost, "/api/admin/users/root@pd15.org/demote", nil, rootToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "you cannot remove your own admin privileges", decode[errorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodDelete, "/api/admin/users/root@pd15.org", nil, rootToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/admin/users/ghost@pd15.org", nil, rootToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/admin/users/alice@pd15.org", nil, rootToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User alice@pd15.org deleted successfully", decode[messageResponse](t, rec).Message)

	rec = ts.do(t, http.MethodGet, "/api/auth/me", nil, aliceToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "sessions of a deleted account end")
}

func TestAPI_ExpiredToken(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "alice", "alice@pd15.org")

	ts.clock.Advance(8*time.Hour + time.Second)
	rec := ts.do(t, http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[healthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	ts.signUp(t, "alice", "alice@pd15.org")

	rec = ts.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "saocontacts_registrations_total 1")
	assert.Contains(t, body, `saocontacts_logins_total{result="success"} 1`)
	assert.True(t, strings.Contains(body, `route="/api/auth/register"`))
}

type downStore struct{}

func (downStore) PingContext(context.Context) error { return context.DeadlineExceeded }

func TestAPI_HealthReportsStoreOutage(t *testing.T) {
	ts := newTestServer(t)
	ts.store = downStore{}

	rec := ts.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decode[healthResponse](t, rec).Status)
}
