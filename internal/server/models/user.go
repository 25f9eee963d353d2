// Package models defines the rows persisted by the credential store.
package models

import "time"

// User is one account row.
type User struct {
	ID                  int64
	Username            string
	Email               string
	PasswordHash        string
	IsVerified          bool
	IsAdmin             bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	LastLogin           *time.Time
}

// LockedAt reports whether a lock is still in force at now.
func (u *User) LockedAt(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// StaleLock reports a lock window that has already passed but was never cleared.
func (u *User) StaleLock(now time.Time) bool {
	return u.LockedUntil != nil && !u.LockedUntil.After(now)
}

// Summary drops the secrets and counters.
func (u *User) Summary() AccountSummary {
	return AccountSummary{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		IsAdmin:    u.IsAdmin,
		CreatedAt:  u.CreatedAt,
		LastLogin:  u.LastLogin,
	}
}

// AccountSummary is what administrative listings expose.
type AccountSummary struct {
	ID         int64      `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	IsVerified bool       `json:"is_verified"`
	IsAdmin    bool       `json:"is_admin"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// AccountStats are the directory-wide counters shown to admins.
type AccountStats struct {
	Total        int `json:"total"`
	Verified     int `json:"verified"`
	Admins       int `json:"admins"`
	ActiveRecent int `json:"active_last_7_days"`
}
