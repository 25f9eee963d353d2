// Package common defines the error taxonomy shared by the credential store, the
// auth services and every presentation surface. Callers match variants with
// errors.Is and categories with KindOf; Message renders text that is always
// safe to show to an end user.
package common

import (
	"errors"
	"fmt"
	"time"
)

// Repository-level errors.
var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("unique constraint violated")
)

// Kind groups error variants into the categories presentation layers branch on.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFoundOrUnverified
	KindAlreadyExists
	KindInvalidCode
	KindCodeExpired
	KindInvalidCredential
	KindPINExpired
	KindAccountLocked
	KindNotAuthenticated
	KindForbidden
	KindNotFound
	KindStoreFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFoundOrUnverified:
		return "not_found_or_unverified"
	case KindAlreadyExists:
		return "already_exists"
	case KindInvalidCode:
		return "invalid_code"
	case KindCodeExpired:
		return "code_expired"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindPINExpired:
		return "pin_expired"
	case KindAccountLocked:
		return "account_locked"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindStoreFailure:
		return "store_failure"
	}
	return "unknown"
}

// Error is a single auth error variant. Variants are compared by identity.
type Error struct {
	kind Kind
	msg  string
}

func newError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind reports the category of the variant.
func (e *Error) Kind() Kind { return e.kind }

var (
	ErrDomainRejected  = newError(KindValidation, "email must be from an authorized domain")
	ErrInvalidFormat   = newError(KindValidation, "invalid email format")
	ErrWeakPassword    = newError(KindValidation, "password must be at least 8 characters long")
	ErrInvalidUsername = newError(KindValidation, "username is required")

	ErrAlreadyExists        = newError(KindAlreadyExists, "user with this email or username already exists")
	ErrNotFoundOrUnverified = newError(KindNotFoundOrUnverified, "user not found or not verified")

	ErrInvalidCode = newError(KindInvalidCode, "invalid verification code")
	ErrCodeExpired = newError(KindCodeExpired, "verification code has expired")

	ErrInvalidResetCode = newError(KindInvalidCode, "invalid reset code")
	ErrResetCodeExpired = newError(KindCodeExpired, "reset code has expired")

	ErrNoActivePIN = newError(KindInvalidCredential, "invalid email or no active PIN")
	ErrInvalidPIN  = newError(KindInvalidCredential, "invalid PIN")
	ErrPINExpired  = newError(KindPINExpired, "PIN has expired")

	ErrAccountLocked = newError(KindAccountLocked, "account is locked due to too many failed attempts")

	ErrNotAuthenticated = newError(KindNotAuthenticated, "authentication required")
	ErrNotAdmin         = newError(KindForbidden, "admin privileges required")
	ErrSelfDemotion     = newError(KindForbidden, "you cannot remove your own admin privileges")
	ErrSelfDeletion     = newError(KindForbidden, "you cannot delete your own account")
	ErrAdminExists      = newError(KindForbidden, "an admin account already exists")

	ErrAccountNotFound = newError(KindNotFound, "user not found")

	ErrStoreFailure = newError(KindStoreFailure, "the operation could not be completed, please try again")
)

// LockedError reports an active lockout and how long it still lasts.
// It matches ErrAccountLocked with errors.Is.
type LockedError struct {
	Until     time.Time
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s. Try again in %s.", ErrAccountLocked.msg, formatRemaining(e.Remaining))
}

func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// Kind reports KindAccountLocked.
func (e *LockedError) Kind() Kind { return KindAccountLocked }

// formatRemaining rounds up to whole minutes so "0 minutes" is never shown
// while the lock is still active.
func formatRemaining(d time.Duration) string {
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

type kinded interface {
	Kind() Kind
}

// KindOf classifies err. Errors outside the taxonomy report KindUnknown.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// Message returns text safe to show an end user. Anything outside the
// taxonomy collapses into the generic store-failure message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindUnknown, KindStoreFailure:
		return ErrStoreFailure.msg
	}
	var locked *LockedError
	if errors.As(err, &locked) {
		return locked.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return ErrStoreFailure.msg
}
