// Package session holds the transient, never persisted login session: the
// denormalized account view handed out by a successful PIN check, the
// registry that keeps live sessions by opaque handle, and the bearer tokens
// that carry those handles over HTTP.
package session

import (
	"time"

	"github.com/pd15/saocontacts/internal/server/models"
)

type Session struct {
	Handle        string    `json:"-"`
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Admin         bool      `json:"is_admin"`
	Authenticated bool      `json:"authenticated"`
	IssuedAt      time.Time `json:"issued_at"`
}

// New builds an authenticated session for u.
func New(u *models.User, at time.Time) *Session {
	return &Session{
		UserID:        u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Admin:         u.IsAdmin,
		Authenticated: true,
		IssuedAt:      at,
	}
}

// IsAuthenticated reports whether s is a live, authenticated session.
func IsAuthenticated(s *Session) bool {
	return s != nil && s.Authenticated
}

// IsAdmin reports whether s is authenticated and carries the admin role.
func IsAdmin(s *Session) bool {
	return IsAuthenticated(s) && s.Admin
}
