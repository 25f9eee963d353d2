package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/pd15/saocontacts/internal/flagx"
)

var ownFlags = []string{
	"-a", "-d", "-driver", "-s", "-session-ttl",
	"-mail", "-log-format", "-log-level", "-bootstrap-admin",
}

// parseFlags overlays the flags this package owns. Flags that are not given
// keep the value from the earlier layers.
//
//	-a string               HTTP bind address
//	-d string               database DSN
//	-driver string          database driver: sqlite or pgx
//	-s string               bearer token secret
//	-session-ttl duration   session lifetime
//	-mail string            mail driver: console or mailgun
//	-log-format string      text, json, zerolog or console
//	-log-level string       debug, info, warn or error
//	-bootstrap-admin string verified account to promote when no admin exists
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "HTTP bind address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "database driver")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "bearer token secret")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "session lifetime")
	fs.StringVar(&cfg.MailDriver, "mail", cfg.MailDriver, "mail driver")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.BootstrapAdmin, "bootstrap-admin", cfg.BootstrapAdmin, "bootstrap admin email")

	if err := fs.Parse(flagx.FilterArgs(args, ownFlags)); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}
