// Package dbtest provides migrated in-memory credential stores for tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/server/migrations"
	"github.com/pd15/saocontacts/internal/server/shared/db"
)

// NewSQLite returns an in-memory SQLite database with the full schema applied.
// It is closed when the test ends.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, dbx.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect(migrations.GooseDialect(dbx.SQLite)))
	goose.SetLogger(goose.NopLogger())
	require.NoError(t, goose.UpContext(ctx, conn, migrations.Dir(dbx.SQLite)))

	return conn
}
