package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/delivery"
	"github.com/pd15/saocontacts/internal/metrics"
	"github.com/pd15/saocontacts/internal/policy"
	"github.com/pd15/saocontacts/internal/secret"
	"github.com/pd15/saocontacts/internal/server/models"
	"github.com/pd15/saocontacts/internal/server/repositories/repomanager"
	"github.com/pd15/saocontacts/internal/server/session"
	"github.com/pd15/saocontacts/internal/server/shared/db/dbtest"
	"github.com/pd15/saocontacts/internal/timex"
)

var cheapHash = secret.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32, SaltLen: 16}

type fixture struct {
	db       *sql.DB
	repos    *repomanager.SQLRepositoryManager
	clock    *timex.FakeClock
	mail     *delivery.Recorder
	metrics  *metrics.Metrics
	accounts *AccountService
	login    *LoginService
	gate     *Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		db:      dbtest.NewSQLite(t),
		repos:   repomanager.NewRepositoryManager(dbx.SQLite),
		clock:   timex.NewFakeClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)),
		mail:    &delivery.Recorder{},
		metrics: metrics.New(),
	}
	deps := Deps{
		DB:        f.db,
		Repos:     f.repos,
		Policy:    policy.Default(),
		Clock:     f.clock,
		Hasher:    secret.NewHasher(cheapHash, nil),
		Generator: secret.NewGenerator(nil),
		Deliverer: f.mail,
		Metrics:   f.metrics,
	}
	f.accounts = NewAccountService(deps)
	f.login = NewLoginService(deps)
	f.gate = NewGate(deps)
	return f
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.repos.Users(f.db).GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

func (f *fixture) lastCode(t *testing.T, email string) string {
	t.Helper()
	msg, ok := f.mail.Last(email)
	require.True(t, ok, "nothing delivered to %s", email)
	code := msg.Code()
	require.Len(t, code, 6)
	return code
}

// registerVerified registers and verifies an account.
func (f *fixture) registerVerified(t *testing.T, username, email string) *models.User {
	t.Helper()
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, username, email, "Secretpass1")
	require.NoError(t, err)
	require.NoError(t, f.accounts.VerifyEmail(ctx, email, f.lastCode(t, email)))
	return f.user(t, email)
}

// signIn issues a PIN and redeems it.
func (f *fixture) signIn(t *testing.T, email string) *session.Session {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.login.IssuePIN(ctx, email))
	s, err := f.login.VerifyPIN(ctx, email, f.lastCode(t, email))
	require.NoError(t, err)
	return s
}

// admin registers, verifies, bootstraps and signs in the first admin.
func (f *fixture) admin(t *testing.T, username, email string) *session.Session {
	t.Helper()
	f.registerVerified(t, username, email)
	require.NoError(t, f.gate.Bootstrap(context.Background(), email))
	return f.signIn(t, email)
}

func (f *fixture) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
