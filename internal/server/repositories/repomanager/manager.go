// Package repomanager vends credential store repositories bound to either a
// connection or a transaction, and applies the embedded schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/server/migrations"
	"github.com/pd15/saocontacts/internal/server/repositories/codes"
	"github.com/pd15/saocontacts/internal/server/repositories/pins"
	"github.com/pd15/saocontacts/internal/server/repositories/users"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Codes(db dbx.DBTX) codes.Repository
	PINs(db dbx.DBTX) pins.Repository
}

// SQLRepositoryManager serves both supported dialects.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

func NewRepositoryManager(dialect dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: dialect}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect { return m.dialect }

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Codes(db dbx.DBTX) codes.Repository {
	return codes.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) PINs(db dbx.DBTX) pins.Repository {
	return pins.NewSQLRepository(db, m.dialect)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations brings the schema up to date using the migrations embedded
// for the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(migrations.GooseDialect(m.dialect)); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.Dir(m.dialect))
}
