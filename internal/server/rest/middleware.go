package rest

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pd15/saocontacts/internal/common"
	"github.com/pd15/saocontacts/internal/server/session"
)

const sessionKey = "session"

// accessLog handles the error itself so the logged status and the metrics
// match what the client receives.
func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}
		elapsed := time.Since(start)

		req, res := c.Request(), c.Response()
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(req.Method, route, res.Status, elapsed)
		s.logger.Info(req.Context(), "request",
			"request_id", res.Header().Get(echo.HeaderXRequestID),
			"method", req.Method,
			"route", route,
			"status", res.Status,
			"duration", elapsed,
		)
		return nil
	}
}

// authenticate resolves the bearer token to a live session.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			return common.ErrNotAuthenticated
		}

		handle, err := s.tokens.Parse(token)
		if err != nil {
			return common.ErrNotAuthenticated
		}
		sess, err := s.sessions.Current(handle)
		if err != nil {
			return common.ErrNotAuthenticated
		}

		c.Set(sessionKey, sess)
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !session.IsAdmin(currentSession(c)) {
			return common.ErrNotAdmin
		}
		return next(c)
	}
}

func currentSession(c echo.Context) *session.Session {
	sess, _ := c.Get(sessionKey).(*session.Session)
	return sess
}
