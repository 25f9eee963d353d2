package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/delivery"
	"github.com/pd15/saocontacts/internal/logging"
	"github.com/pd15/saocontacts/internal/metrics"
	"github.com/pd15/saocontacts/internal/policy"
	"github.com/pd15/saocontacts/internal/secret"
	"github.com/pd15/saocontacts/internal/server/repositories/repomanager"
	"github.com/pd15/saocontacts/internal/server/services"
	"github.com/pd15/saocontacts/internal/server/session"
	"github.com/pd15/saocontacts/internal/server/shared/db/dbtest"
	"github.com/pd15/saocontacts/internal/timex"
)

type testServer struct {
	*Server
	clock *timex.FakeClock
	mail  *delivery.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	clock := timex.NewFakeClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	mail := &delivery.Recorder{}
	m := metrics.New()
	db := dbtest.NewSQLite(t)
	gen := secret.NewGenerator(nil)

	deps := services.Deps{
		DB:        db,
		Repos:     repomanager.NewRepositoryManager(dbx.SQLite),
		Policy:    policy.Default(),
		Clock:     clock,
		Hasher:    secret.NewHasher(secret.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32, SaltLen: 16}, nil),
		Generator: gen,
		Deliverer: mail,
		Metrics:   m,
	}
	svc := Services{
		Accounts: services.NewAccountService(deps),
		Login:    services.NewLoginService(deps),
		Admin:    services.NewGate(deps),
	}

	srv := NewServer(":0", logging.Nop(), svc,
		session.NewRegistry(8*time.Hour, clock, gen.OpaqueToken),
		session.NewTokens([]byte("test-secret"), 8*time.Hour, clock),
		m, db)

	return &testServer{Server: srv, clock: clock, mail: mail}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) code(t *testing.T, email string) string {
	t.Helper()
	msg, ok := ts.mail.Last(email)
	require.True(t, ok)
	return msg.Code()
}

// signUp registers, verifies and logs in an account and returns its token.
func (ts *testServer) signUp(t *testing.T, username, email string) string {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username, "email": email, "password": "Secretpass1",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/auth/verify", map[string]string{"email": email, "code": ts.code(t, email)}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return ts.signIn(t, email)
}

func (ts *testServer) signIn(t *testing.T, email string) string {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/auth/pin", map[string]string{"email": email}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "pin": ts.code(t, email)}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
