package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	isAdmin() bool

	Register(ctx context.Context) error
	Verify(ctx context.Context) error
	RequestPIN(ctx context.Context) error
	Login(ctx context.Context) error
	RequestReset(ctx context.Context) error
	ConfirmReset(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error

	Users(ctx context.Context) error
	Stats(ctx context.Context) error
	Promote(ctx context.Context, email string) error
	Demote(ctx context.Context, email string) error
	Delete(ctx context.Context, email string) error
	Bootstrap(ctx context.Context, email string) error
}

const (
	helpGuest = "Available commands: register, verify, pin, login, reset, resetconfirm, bootstrap <email>, exit"
	helpUser  = "Available commands: whoami, logout, reset, resetconfirm, exit"
	helpAdmin = "Available commands: whoami, users, stats, promote <email>, demote <email>, delete <email>, logout, exit"
)

// runREPL reads commands line by line until EOF, "exit" or "quit". Command
// handlers report their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "sao %s> ", statusFn())
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		withEmail := func(fn func(context.Context, string) error) {
			if len(args) != 1 {
				fmt.Fprintf(w, "Usage: %s <email>\n", cmd)
				return
			}
			_ = fn(ctx, args[0])
		}

		switch cmd {
		case "help":
			switch {
			case a.isAdmin():
				fmt.Fprintln(w, helpAdmin)
			case a.isLoggedIn():
				fmt.Fprintln(w, helpUser)
			default:
				fmt.Fprintln(w, helpGuest)
			}

		case "register":
			_ = a.Register(ctx)
		case "verify":
			_ = a.Verify(ctx)
		case "pin":
			_ = a.RequestPIN(ctx)
		case "login":
			_ = a.Login(ctx)
		case "reset":
			_ = a.RequestReset(ctx)
		case "resetconfirm":
			_ = a.ConfirmReset(ctx)
		case "whoami":
			_ = a.WhoAmI(ctx)
		case "logout":
			_ = a.Logout(ctx)

		case "users":
			_ = a.Users(ctx)
		case "stats":
			_ = a.Stats(ctx)
		case "promote":
			withEmail(a.Promote)
		case "demote":
			withEmail(a.Demote)
		case "delete":
			withEmail(a.Delete)
		case "bootstrap":
			withEmail(a.Bootstrap)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
