// Package server wires the auth core to its credential store and serves it
// over HTTP until a termination signal arrives.
package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pd15/saocontacts/internal/logging"
	"github.com/pd15/saocontacts/internal/server/config"
	"github.com/pd15/saocontacts/internal/server/rest"
	"github.com/pd15/saocontacts/internal/server/session"
)

type App struct {
	config *config.Config
	logger logging.Logger
	core   *Core
	server *rest.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, c.LogLevel, os.Stdout)

	core, err := NewCore(ctx, c, logger, os.Stdout)
	if err != nil {
		return nil, err
	}

	sessions := session.NewRegistry(c.SessionTTL, nil, core.Generator.OpaqueToken)
	tokens := session.NewTokens([]byte(c.SecretKey), c.SessionTTL, nil)

	srv := rest.NewServer(c.HTTPAddr, logger, rest.Services{
		Accounts: core.Accounts,
		Login:    core.Login,
		Admin:    core.Gate,
	}, sessions, tokens, core.Metrics, core.DB)

	return &App{config: c, logger: logger, core: core, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "err", err)
		cancelFunc()
	}
}

// Run blocks until the server stops, then closes the store.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "driver", app.config.DatabaseDriver)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.core.Close(); err != nil {
		app.logger.Error(ctx, "closing store", "err", err)
	}
	app.logger.Info(ctx, "App stopped")
}
