package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/server/repositories/codes"
	"github.com/pd15/saocontacts/internal/server/repositories/pins"
	"github.com/pd15/saocontacts/internal/server/repositories/users"
	"github.com/pd15/saocontacts/internal/server/shared/db"
)

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	var m RepositoryManager = NewRepositoryManager(dbx.Postgres)

	assert.Equal(t, dbx.Postgres, m.Dialect())
	assert.IsType(t, &users.SQLRepository{}, m.Users(conn))
	assert.IsType(t, &codes.SQLRepository{}, m.Codes(conn))
	assert.IsType(t, &pins.SQLRepository{}, m.PINs(conn))
}

func TestRunMigrations_UsesDialectDir(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, NewRepositoryManager(dbx.Postgres).RunMigrations(context.Background(), conn))
	assert.Equal(t, "postgres", gotDir)

	require.NoError(t, NewRepositoryManager(dbx.SQLite).RunMigrations(context.Background(), conn))
	assert.Equal(t, "sqlite", gotDir)
}

func TestRunMigrations_Error(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	err = NewRepositoryManager(dbx.SQLite).RunMigrations(context.Background(), conn)
	require.EqualError(t, err, "boom")
}

func TestRunMigrations_SQLiteSchema(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, dbx.SQLite, ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	m := NewRepositoryManager(dbx.SQLite)
	require.NoError(t, m.RunMigrations(ctx, conn))
	require.NoError(t, m.RunMigrations(ctx, conn), "re-running is a no-op")

	for _, table := range []string{"users", "email_verification", "login_pins"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	n, err := m.Users(conn).CountAdmins(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
