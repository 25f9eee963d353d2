// Package delivery sends verification codes and PINs to account owners.
// Delivery is best-effort: callers learn only whether it succeeded.
package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Deliverer sends a message to an email address.
type Deliverer interface {
	Deliver(ctx context.Context, to, subject, body string) bool
}

// Func adapts a plain function to Deliverer.
type Func func(ctx context.Context, to, subject, body string) bool

func (f Func) Deliver(ctx context.Context, to, subject, body string) bool {
	return f(ctx, to, subject, body)
}

// Kind names the flow a message belongs to.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindPIN          Kind = "pin"
	KindReset        Kind = "reset"
)

const product = "SAO Contact Manager"

// Message is a rendered email.
type Message struct {
	Kind    Kind
	Subject string
	Body    string
}

// RegistrationMessage asks a new user to confirm their address.
func RegistrationMessage(code string, ttl time.Duration) Message {
	return Message{
		Kind:    KindRegistration,
		Subject: product + " - Email Verification",
		Body: lines(
			"Welcome to the "+product+"!",
			"",
			"Your verification code is: "+code,
			"",
			fmt.Sprintf("This code will expire in %s. Please enter it in the application to complete your registration.", humanize(ttl)),
			"",
			"If you did not request this verification, please ignore this email.",
		),
	}
}

// PINMessage carries a one-time login PIN.
func PINMessage(pin string, ttl time.Duration) Message {
	return Message{
		Kind:    KindPIN,
		Subject: product + " - Login PIN",
		Body: lines(
			"Your login PIN is: "+pin,
			"",
			fmt.Sprintf("This PIN will expire in %s. Use it to access the %s.", humanize(ttl), product),
			"",
			"If you did not request this PIN, please secure your account immediately.",
		),
	}
}

// ResetMessage carries a password reset code.
func ResetMessage(code string, ttl time.Duration) Message {
	return Message{
		Kind:    KindReset,
		Subject: product + " - Password Reset",
		Body: lines(
			"A password reset was requested for your account.",
			"",
			"Your reset code is: "+code,
			"",
			fmt.Sprintf("This code will expire in %s. Use it to reset your password.", humanize(ttl)),
			"",
			"If you did not request this reset, please ignore this email.",
		),
	}
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

// humanize renders whole hours or minutes, e.g. "24 hours", "15 minutes".
func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int((d+time.Minute-1)/time.Minute), "minute")
	default:
		return plural(int((d+time.Second-1)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
