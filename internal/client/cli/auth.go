package cli

import (
	"context"
	"errors"

	"github.com/pd15/saocontacts/internal/common"
	"github.com/pd15/saocontacts/internal/secret"
	"github.com/pd15/saocontacts/internal/server/services"
)

// Indirections for tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

var errAborted = errors.New("input aborted")

func (a *App) prompt(text string) (string, error) {
	v, err := getSimpleText(a.reader, text, a.out)
	if err != nil {
		return "", errAborted
	}
	return v, nil
}

// fail prints the user-safe message for err and returns it.
func (a *App) fail(err error) error {
	a.println("Error:", common.Message(err))
	return err
}

func (a *App) Register(ctx context.Context) error {
	username, err := a.prompt("Enter username")
	if err != nil {
		return err
	}
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return errAborted
	}
	defer secret.Wipe(password)

	if _, err := a.core.Accounts.Register(ctx, username, email, string(password)); err != nil {
		return a.fail(err)
	}
	a.println(services.MsgRegistered)
	return nil
}

func (a *App) Verify(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	code, err := a.prompt("Enter verification code")
	if err != nil {
		return err
	}

	if err := a.core.Accounts.VerifyEmail(ctx, email, code); err != nil {
		return a.fail(err)
	}
	a.println(services.MsgVerified)
	return nil
}

func (a *App) RequestPIN(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}

	if err := a.core.Login.IssuePIN(ctx, email); err != nil {
		return a.fail(err)
	}
	a.println(services.MsgPINSent)
	return nil
}

// Login redeems a PIN and replaces any session this client held.
func (a *App) Login(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	pin, err := a.prompt("Enter login PIN")
	if err != nil {
		return err
	}

	sess, err := a.core.Login.VerifyPIN(ctx, email, pin)
	if err != nil {
		return a.fail(err)
	}

	if a.handle != "" {
		a.sessions.End(a.handle)
	}
	handle, err := a.sessions.Begin(sess)
	if err != nil {
		return a.fail(err)
	}
	a.handle = handle

	a.println(services.MsgLoginSuccess)
	return nil
}

func (a *App) RequestReset(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	a.println(a.core.Accounts.RequestPasswordReset(ctx, email))
	return nil
}

func (a *App) ConfirmReset(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	code, err := a.prompt("Enter reset code")
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Enter new password", a.out)
	if err != nil {
		return errAborted
	}
	defer secret.Wipe(password)

	if err := a.core.Accounts.ResetPassword(ctx, email, code, string(password)); err != nil {
		return a.fail(err)
	}
	a.println(services.MsgPasswordReset)
	return nil
}

func (a *App) WhoAmI(context.Context) error {
	s := a.current()
	if s == nil {
		return a.fail(common.ErrNotAuthenticated)
	}

	role := "user"
	if s.Admin {
		role = "admin"
	}
	a.println(s.Username, "<"+s.Email+">", role)
	return nil
}

func (a *App) Logout(context.Context) error {
	if a.handle != "" {
		a.sessions.End(a.handle)
		a.handle = ""
	}
	a.println(services.MsgLoggedOut)
	return nil
}
