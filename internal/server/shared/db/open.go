// Package db opens the credential store connection for the configured dialect.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/filex"
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// Open connects to dsn and verifies the connection.
//
// SQLite gets a single connection so writers serialize in the pool rather than
// failing with SQLITE_BUSY, plus the pragmas above.
func Open(ctx context.Context, dialect dbx.Dialect, dsn string) (*sql.DB, error) {
	if dialect == dbx.SQLite {
		if err := filex.EnsureParentDir(dsn); err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if dialect == dbx.SQLite {
		db.SetMaxOpenConns(1)
		for _, p := range sqlitePragmas {
			if _, err := db.ExecContext(ctx, p); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("db pragma %q: %w", p, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return db, nil
}

// sqliteDSN asks the driver to store timestamps in SQLite's own text format,
// which sorts chronologically.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_time_format=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_time_format=sqlite"
}
