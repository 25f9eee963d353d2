// Package rest serves the auth core as a JSON API over HTTP. Bearer tokens
// carry session handles; the session itself lives in a session.Registry.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/pd15/saocontacts/internal/logging"
	"github.com/pd15/saocontacts/internal/metrics"
	"github.com/pd15/saocontacts/internal/server/models"
	"github.com/pd15/saocontacts/internal/server/session"
)

const shutdownTimeout = 10 * time.Second

// Accounts is the account lifecycle used by the handlers.
type Accounts interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	VerifyEmail(ctx context.Context, email, code string) error
	RequestPasswordReset(ctx context.Context, email string) string
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// Login issues and checks PINs.
type Login interface {
	IssuePIN(ctx context.Context, email string) error
	VerifyPIN(ctx context.Context, email, pin string) (*session.Session, error)
}

// Admin is the authorization gate.
type Admin interface {
	Promote(ctx context.Context, actor *session.Session, email string) error
	Demote(ctx context.Context, actor *session.Session, email string) error
	Delete(ctx context.Context, actor *session.Session, email string) error
	List(ctx context.Context, actor *session.Session) ([]models.AccountSummary, error)
	Stats(ctx context.Context, actor *session.Session) (models.AccountStats, error)
}

// Pinger reports whether the credential store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Services struct {
	Accounts Accounts
	Login    Login
	Admin    Admin
}

type Server struct {
	address  string
	echo     *echo.Echo
	services Services
	sessions *session.Registry
	tokens   *session.Tokens
	metrics  *metrics.Metrics
	store    Pinger
	logger   logging.Logger
}

func NewServer(address string, l logging.Logger, svc Services, sessions *session.Registry, tokens *session.Tokens, m *metrics.Metrics, store Pinger) *Server {
	s := &Server{
		address:  address,
		services: svc,
		sessions: sessions,
		tokens:   tokens,
		metrics:  m,
		store:    store,
		logger:   l.With("module", "http_server"),
	}
	s.echo = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(s.logger)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(s.accessLog)

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	auth := e.Group("/api/auth")
	auth.POST("/register", s.register)
	auth.POST("/verify", s.verify)
	auth.POST("/pin", s.issuePIN)
	auth.POST("/login", s.login)
	auth.POST("/password-reset", s.requestReset)
	auth.POST("/password-reset/confirm", s.confirmReset)
	auth.POST("/logout", s.logout, s.authenticate)
	auth.GET("/me", s.me, s.authenticate)

	admin := e.Group("/api/admin", s.authenticate, s.requireAdmin)
	admin.GET("/users", s.listUsers)
	admin.GET("/stats", s.stats)
	admin.POST("/users/:email/promote", s.promote)
	admin.POST("/users/:email/demote", s.demote)
	admin.DELETE("/users/:email", s.deleteUser)

	return e
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "err", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
