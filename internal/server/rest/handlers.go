package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pd15/saocontacts/internal/server/models"
	"github.com/pd15/saocontacts/internal/server/services"
	"github.com/pd15/saocontacts/internal/server/session"
)

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type pinRequest struct {
	Email string `json:"email" validate:"required"`
}

// loginRequest leaves the PIN shape to the login service so a locked account
// answers AccountLocked whatever was sent.
type loginRequest struct {
	Email string `json:"email" validate:"required"`
	PIN   string `json:"pin" validate:"required"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetConfirmRequest struct {
	Email       string `json:"email" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type registerResponse struct {
	Message string                `json:"message"`
	User    models.AccountSummary `json:"user"`
}

type loginResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    *session.Session `json:"user"`
}

// bind decodes and validates the JSON body into req.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := s.services.Accounts.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, registerResponse{Message: services.MsgRegistered, User: user.Summary()})
}

func (s *Server) verify(c echo.Context) error {
	var req verifyRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.services.Accounts.VerifyEmail(c.Request().Context(), req.Email, req.Code); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: services.MsgVerified})
}

func (s *Server) issuePIN(c echo.Context) error {
	var req pinRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.services.Login.IssuePIN(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: services.MsgPINSent})
}

// login redeems a PIN, registers the session and signs its handle.
func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	sess, err := s.services.Login.VerifyPIN(ctx, req.Email, req.PIN)
	if err != nil {
		return err
	}

	handle, err := s.sessions.Begin(sess)
	if err != nil {
		return err
	}
	token, err := s.tokens.Issue(handle)
	if err != nil {
		s.sessions.End(handle)
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{Message: services.MsgLoginSuccess, Token: token, User: sess})
}

func (s *Server) requestReset(c echo.Context) error {
	var req resetRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	msg := s.services.Accounts.RequestPasswordReset(c.Request().Context(), req.Email)
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) confirmReset(c echo.Context) error {
	var req resetConfirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.services.Accounts.ResetPassword(c.Request().Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: services.MsgPasswordReset})
}

func (s *Server) logout(c echo.Context) error {
	s.sessions.End(currentSession(c).Handle)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) me(c echo.Context) error {
	return c.JSON(http.StatusOK, currentSession(c))
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if s.store != nil {
		if err := s.store.PingContext(ctx); err != nil {
			s.logger.Warn(ctx, "store ping failed", "err", err)
			return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Store: "unreachable"})
		}
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Store: "ok"})
}
