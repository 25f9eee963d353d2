package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/pd15/saocontacts/internal/common"
	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/delivery"
	"github.com/pd15/saocontacts/internal/logging"
	"github.com/pd15/saocontacts/internal/metrics"
	"github.com/pd15/saocontacts/internal/secret"
	"github.com/pd15/saocontacts/internal/server/config"
	"github.com/pd15/saocontacts/internal/server/repositories/repomanager"
	"github.com/pd15/saocontacts/internal/server/services"
	"github.com/pd15/saocontacts/internal/server/shared/db"
	"github.com/pd15/saocontacts/internal/timex"
)

// Core is the auth core wired to a migrated credential store. The HTTP
// server and the desktop CLI both run on top of it.
type Core struct {
	DB        *sql.DB
	Metrics   *metrics.Metrics
	Generator *secret.Generator
	Accounts  *services.AccountService
	Login     *services.LoginService
	Gate      *services.Gate
}

// NewCore opens the store, applies migrations and builds the services.
// console receives messages when the mail driver is "console".
func NewCore(ctx context.Context, c *config.Config, l logging.Logger, console io.Writer) (*Core, error) {
	dialect, err := dbx.ParseDialect(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(ctx, dialect, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewRepositoryManager(dialect)
	if err := repos.RunMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	m := metrics.New()
	gen := secret.NewGenerator(nil)
	deps := services.Deps{
		DB:        conn,
		Repos:     repos,
		Policy:    c.Policy(),
		Clock:     timex.RealClock{},
		Hasher:    secret.NewHasher(secret.DefaultParams, nil),
		Generator: gen,
		Deliverer: newDeliverer(c, l, console),
		Logger:    l,
		Metrics:   m,
	}

	core := &Core{
		DB:        conn,
		Metrics:   m,
		Generator: gen,
		Accounts:  services.NewAccountService(deps),
		Login:     services.NewLoginService(deps),
		Gate:      services.NewGate(deps),
	}

	if c.BootstrapAdmin != "" {
		if err := core.Bootstrap(ctx, c.BootstrapAdmin, l); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return core, nil
}

// Bootstrap promotes email when the directory has no admin yet. An existing
// admin is not an error.
func (c *Core) Bootstrap(ctx context.Context, email string, l logging.Logger) error {
	err := c.Gate.Bootstrap(ctx, email)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrAdminExists):
		l.Info(ctx, "bootstrap skipped, admin already exists")
		return nil
	default:
		return fmt.Errorf("bootstrap admin %s: %w", email, err)
	}
}

func (c *Core) Close() error {
	return c.DB.Close()
}

func newDeliverer(c *config.Config, l logging.Logger, console io.Writer) delivery.Deliverer {
	if c.MailDriver == config.MailMailgun {
		return delivery.NewMailgun(delivery.MailgunConfig{
			Domain:  c.MailgunDomain,
			APIKey:  c.MailgunAPIKey,
			APIBase: c.MailgunAPIBase,
			From:    c.MailFrom,
		}, l)
	}
	return delivery.NewConsole(console)
}
