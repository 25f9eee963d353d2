package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pd15/saocontacts/internal/logging"
	"github.com/pd15/saocontacts/internal/server"
	"github.com/pd15/saocontacts/internal/server/config"
	"github.com/pd15/saocontacts/internal/server/session"
)

type App struct {
	config   *config.Config
	core     *server.Core
	logger   logging.Logger
	sessions *session.Registry
	handle   string
	reader   *bufio.Reader
	out      io.Writer
}

// NewApp opens the local store. Delivered messages are printed to stdout.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, c.LogLevel, os.Stderr)

	core, err := server.NewCore(ctx, c, logger, os.Stdout)
	if err != nil {
		return nil, err
	}

	return newApp(c, core, logger, bufio.NewReader(os.Stdin), os.Stdout), nil
}

func newApp(c *config.Config, core *server.Core, l logging.Logger, r *bufio.Reader, w io.Writer) *App {
	return &App{
		config:   c,
		core:     core,
		logger:   l.With("module", "cli"),
		sessions: session.NewRegistry(c.SessionTTL, nil, core.Generator.OpaqueToken),
		reader:   r,
		out:      w,
	}
}

// Run blocks in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.core.Close(); err != nil {
			a.logger.Error(ctx, "closing store", "err", err)
		}
	}()

	a.println("SAO Contact Manager (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader, a.out)
}

// current returns the live session, or nil once it ended or expired.
func (a *App) current() *session.Session {
	if a.handle == "" {
		return nil
	}
	s, err := a.sessions.Current(a.handle)
	if err != nil {
		a.handle = ""
		return nil
	}
	return s
}

func (a *App) isLoggedIn() bool {
	return a.current() != nil
}

func (a *App) isAdmin() bool {
	return session.IsAdmin(a.current())
}

func (a *App) status() string {
	s := a.current()
	switch {
	case s == nil:
		return ""
	case s.Admin:
		return "(" + s.Username + " admin)"
	default:
		return "(" + s.Username + ")"
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
