package rest

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/pd15/saocontacts/internal/policy"
	"github.com/pd15/saocontacts/internal/server/models"
	"github.com/pd15/saocontacts/internal/server/services"
)

type usersResponse struct {
	Users []models.AccountSummary `json:"users"`
}

// targetEmail reads the :email path parameter, which may arrive escaped.
func targetEmail(c echo.Context) string {
	raw := c.Param("email")
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	return policy.NormalizeEmail(raw)
}

func (s *Server) listUsers(c echo.Context) error {
	list, err := s.services.Admin.List(c.Request().Context(), currentSession(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usersResponse{Users: list})
}

func (s *Server) stats(c echo.Context) error {
	st, err := s.services.Admin.Stats(c.Request().Context(), currentSession(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) promote(c echo.Context) error {
	email := targetEmail(c)
	if err := s.services.Admin.Promote(c.Request().Context(), currentSession(c), email); err != nil {
		return err
	}
	s.sessions.SetAdmin(email, true)
	return c.JSON(http.StatusOK, messageResponse{Message: services.PromotedMessage(email)})
}

func (s *Server) demote(c echo.Context) error {
	email := targetEmail(c)
	if err := s.services.Admin.Demote(c.Request().Context(), currentSession(c), email); err != nil {
		return err
	}
	s.sessions.SetAdmin(email, false)
	return c.JSON(http.StatusOK, messageResponse{Message: services.DemotedMessage(email)})
}

// deleteUser also ends every live session of the removed account.
func (s *Server) deleteUser(c echo.Context) error {
	email := targetEmail(c)
	if err := s.services.Admin.Delete(c.Request().Context(), currentSession(c), email); err != nil {
		return err
	}
	s.sessions.EndAccount(email)
	return c.JSON(http.StatusOK, messageResponse{Message: services.DeletedMessage(email)})
}
