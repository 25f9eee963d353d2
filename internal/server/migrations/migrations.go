// Package migrations embeds the credential store schema, one directory per
// SQL dialect, for goose.
package migrations

import (
	"embed"

	"github.com/pd15/saocontacts/internal/dbx"
)

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

// Dir returns the embedded directory holding migrations for d.
func Dir(d dbx.Dialect) string {
	if d == dbx.Postgres {
		return "postgres"
	}
	return "sqlite"
}

// GooseDialect returns the goose dialect name for d.
func GooseDialect(d dbx.Dialect) string {
	if d == dbx.Postgres {
		return "pgx"
	}
	return "sqlite3"
}
