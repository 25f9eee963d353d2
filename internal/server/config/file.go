package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pd15/saocontacts/internal/timex"
)

// fileConfig is the on-disk shape. Durations accept "90s" style strings;
// JSON also takes integer nanoseconds. Zero values leave the current setting
// untouched.
type fileConfig struct {
	HTTPAddr       string         `json:"http_addr" toml:"http_addr"`
	DatabaseDriver string         `json:"database_driver" toml:"database_driver"`
	DatabaseDSN    string         `json:"database_dsn" toml:"database_dsn"`
	SecretKey      string         `json:"secret_key" toml:"secret_key"`
	SessionTTL     timex.Duration `json:"session_ttl" toml:"session_ttl"`

	AllowedDomains   []string       `json:"allowed_domains" toml:"allowed_domains"`
	VerificationTTL  timex.Duration `json:"verification_ttl" toml:"verification_ttl"`
	ResetTTL         timex.Duration `json:"reset_ttl" toml:"reset_ttl"`
	PINTTL           timex.Duration `json:"pin_ttl" toml:"pin_ttl"`
	LockoutThreshold int            `json:"lockout_threshold" toml:"lockout_threshold"`
	LockoutDuration  timex.Duration `json:"lockout_duration" toml:"lockout_duration"`

	Mail struct {
		Driver         string `json:"driver" toml:"driver"`
		From           string `json:"from" toml:"from"`
		MailgunDomain  string `json:"mailgun_domain" toml:"mailgun_domain"`
		MailgunAPIKey  string `json:"mailgun_api_key" toml:"mailgun_api_key"`
		MailgunAPIBase string `json:"mailgun_api_base" toml:"mailgun_api_base"`
	} `json:"mail" toml:"mail"`

	Log struct {
		Format string `json:"format" toml:"format"`
		Level  string `json:"level" toml:"level"`
	} `json:"log" toml:"log"`

	BootstrapAdmin string `json:"bootstrap_admin" toml:"bootstrap_admin"`
}

// parseFile overlays the file at path. The format follows the extension:
// .toml for TOML, anything else is read as JSON.
func parseFile(cfg *Config, path string) error {
	var fc fileConfig

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	} else {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		if err := json.Unmarshal(b, &fc); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.DatabaseDriver, fc.DatabaseDriver)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.SecretKey, fc.SecretKey)
	setDuration(&cfg.SessionTTL, fc.SessionTTL)

	if len(fc.AllowedDomains) > 0 {
		cfg.AllowedDomains = append([]string(nil), fc.AllowedDomains...)
	}
	setDuration(&cfg.VerificationTTL, fc.VerificationTTL)
	setDuration(&cfg.ResetTTL, fc.ResetTTL)
	setDuration(&cfg.PINTTL, fc.PINTTL)
	if fc.LockoutThreshold != 0 {
		cfg.LockoutThreshold = fc.LockoutThreshold
	}
	setDuration(&cfg.LockoutDuration, fc.LockoutDuration)

	setString(&cfg.MailDriver, fc.Mail.Driver)
	setString(&cfg.MailFrom, fc.Mail.From)
	setString(&cfg.MailgunDomain, fc.Mail.MailgunDomain)
	setString(&cfg.MailgunAPIKey, fc.Mail.MailgunAPIKey)
	setString(&cfg.MailgunAPIBase, fc.Mail.MailgunAPIBase)

	setString(&cfg.LogFormat, fc.Log.Format)
	setString(&cfg.LogLevel, fc.Log.Level)

	setString(&cfg.BootstrapAdmin, fc.BootstrapAdmin)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
