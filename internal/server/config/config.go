// Package config assembles runtime settings for the server and the desktop
// CLI. Sources apply in order: defaults, an optional JSON or TOML file named
// by -c/-config, SAO_* environment variables, then command-line flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/pd15/saocontacts/internal/dbx"
	"github.com/pd15/saocontacts/internal/flagx"
	"github.com/pd15/saocontacts/internal/policy"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	MailConsole = "console"
	MailMailgun = "mailgun"
)

// Config holds runtime settings.
//
//   - HTTPAddr: bind address of the JSON API.
//   - DatabaseDriver / DatabaseDSN: credential store ("sqlite" file path or "pgx" URL).
//   - SecretKey: HMAC secret for bearer tokens. The default is for development only.
//   - SessionTTL: lifetime of a login session and its token.
//   - AllowedDomains and the TTL/lockout fields feed the account policy.
//   - MailDriver: "console" prints messages, "mailgun" sends them.
//   - BootstrapAdmin: verified account promoted at start while no admin exists.
type Config struct {
	HTTPAddr       string        `env:"SAO_HTTP_ADDR, overwrite"`
	DatabaseDriver string        `env:"SAO_DB_DRIVER, overwrite"`
	DatabaseDSN    string        `env:"SAO_DB_DSN, overwrite"`
	SecretKey      string        `env:"SAO_SECRET_KEY, overwrite"`
	SessionTTL     time.Duration `env:"SAO_SESSION_TTL, overwrite"`

	AllowedDomains   []string      `env:"SAO_ALLOWED_DOMAINS, overwrite"`
	VerificationTTL  time.Duration `env:"SAO_VERIFICATION_TTL, overwrite"`
	ResetTTL         time.Duration `env:"SAO_RESET_TTL, overwrite"`
	PINTTL           time.Duration `env:"SAO_PIN_TTL, overwrite"`
	LockoutThreshold int           `env:"SAO_LOCKOUT_THRESHOLD, overwrite"`
	LockoutDuration  time.Duration `env:"SAO_LOCKOUT_DURATION, overwrite"`

	MailDriver     string `env:"SAO_MAIL_DRIVER, overwrite"`
	MailFrom       string `env:"SAO_MAIL_FROM, overwrite"`
	MailgunDomain  string `env:"SAO_MAILGUN_DOMAIN, overwrite"`
	MailgunAPIKey  string `env:"SAO_MAILGUN_API_KEY, overwrite"`
	MailgunAPIBase string `env:"SAO_MAILGUN_API_BASE, overwrite"`

	LogFormat string `env:"SAO_LOG_FORMAT, overwrite"`
	LogLevel  string `env:"SAO_LOG_LEVEL, overwrite"`

	BootstrapAdmin string `env:"SAO_BOOTSTRAP_ADMIN, overwrite"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	p := policy.Default()

	c.HTTPAddr = ":8080"
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "saocontacts.db"
	c.SecretKey = "secretKey"
	c.SessionTTL = 8 * time.Hour

	c.AllowedDomains = p.AllowedDomains
	c.VerificationTTL = p.VerificationTTL
	c.ResetTTL = p.ResetTTL
	c.PINTTL = p.PINTTL
	c.LockoutThreshold = p.LockoutThreshold
	c.LockoutDuration = p.LockoutDuration

	c.MailDriver = MailConsole
	c.MailFrom = "SAO Contact Manager <noreply@pd15.org>"

	c.LogFormat = "json"
	c.LogLevel = "info"
}

// LoadDesktopDefaults is LoadDefaults with console-friendly logging for the
// interactive CLI.
func (c *Config) LoadDesktopDefaults() {
	c.LoadDefaults()
	c.LogFormat = "console"
	c.LogLevel = "warn"
}

// Policy returns the account policy described by the config.
func (c *Config) Policy() policy.Policy {
	return policy.Policy{
		AllowedDomains:   append([]string(nil), c.AllowedDomains...),
		VerificationTTL:  c.VerificationTTL,
		ResetTTL:         c.ResetTTL,
		PINTTL:           c.PINTTL,
		LockoutThreshold: c.LockoutThreshold,
		LockoutDuration:  c.LockoutDuration,
	}
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := dbx.ParseDialect(c.DatabaseDriver); err != nil {
		errs = append(errs, err)
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if len(c.AllowedDomains) == 0 {
		errs = append(errs, errors.New("at least one allowed domain is required"))
	}
	if c.LockoutThreshold < 1 {
		errs = append(errs, errors.New("lockout threshold must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"session ttl":      c.SessionTTL,
		"verification ttl": c.VerificationTTL,
		"reset ttl":        c.ResetTTL,
		"pin ttl":          c.PINTTL,
		"lockout duration": c.LockoutDuration,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	switch c.MailDriver {
	case MailConsole:
	case MailMailgun:
		if c.MailgunDomain == "" || c.MailgunAPIKey == "" {
			errs = append(errs, errors.New("mailgun requires domain and api key"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mail driver %q", c.MailDriver))
	}

	return errors.Join(errs...)
}

// Load applies the file, environment and flag layers from args and env on
// top of base, then validates the result.
func Load(ctx context.Context, base *Config, args []string, env envconfig.Lookuper) (*Config, error) {
	cfg := *base

	if path := flagx.ConfigPath(args); path != "" {
		if err := parseFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseEnv(ctx, &cfg, env); err != nil {
		return nil, err
	}
	if err := parseFlags(&cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadConfig builds the server Config from os.Args and the process
// environment.
func LoadConfig() (*Config, error) {
	base := &Config{}
	base.LoadDefaults()
	return Load(context.Background(), base, os.Args[1:], envconfig.OsLookuper())
}

// LoadDesktopConfig builds the CLI Config from os.Args and the process
// environment.
func LoadDesktopConfig() (*Config, error) {
	base := &Config{}
	base.LoadDesktopDefaults()
	return Load(context.Background(), base, os.Args[1:], envconfig.OsLookuper())
}

func parseEnv(ctx context.Context, cfg *Config, env envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: cfg, Lookuper: env}); err != nil {
		return fmt.Errorf("env config: %w", err)
	}
	return nil
}
