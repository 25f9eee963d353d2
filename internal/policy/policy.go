// Package policy holds the stateless account rules: which email domains may
// register, what a syntactically valid email looks like, the password minimum,
// and the expiry and lockout windows applied by the auth services.
package policy

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultAllowedDomains are the organizational suffixes accepted at registration.
var DefaultAllowedDomains = []string{"@pd15.org", "@pd15.state.fl.us"}

const (
	MinPasswordLength = 8

	DefaultVerificationTTL  = 24 * time.Hour
	DefaultResetTTL         = time.Hour
	DefaultPINTTL           = 15 * time.Minute
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Minute
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Policy carries the tunable windows and the domain allow-list.
// The zero value is not usable; start from Default.
type Policy struct {
	AllowedDomains   []string
	VerificationTTL  time.Duration
	ResetTTL         time.Duration
	PINTTL           time.Duration
	LockoutThreshold int
	LockoutDuration  time.Duration
}

// Default returns the production policy.
func Default() Policy {
	return Policy{
		AllowedDomains:   append([]string(nil), DefaultAllowedDomains...),
		VerificationTTL:  DefaultVerificationTTL,
		ResetTTL:         DefaultResetTTL,
		PINTTL:           DefaultPINTTL,
		LockoutThreshold: DefaultLockoutThreshold,
		LockoutDuration:  DefaultLockoutDuration,
	}
}

// IsDomainAllowed reports whether email ends with one of the allowed suffixes,
// ignoring case and surrounding whitespace.
func (p Policy) IsDomainAllowed(email string) bool {
	email = NormalizeEmail(email)
	for _, domain := range p.AllowedDomains {
		suffix := strings.ToLower(strings.TrimSpace(domain))
		if suffix == "" {
			continue
		}
		if !strings.HasPrefix(suffix, "@") {
			suffix = "@" + suffix
		}
		if strings.HasSuffix(email, suffix) {
			return true
		}
	}
	return false
}

// IsFormatValid checks local-part, '@', and a domain with a TLD of at least
// two letters.
func IsFormatValid(email string) bool {
	return emailPattern.MatchString(email)
}

// MeetsPasswordPolicy enforces the minimum length only.
func MeetsPasswordPolicy(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

// NormalizeEmail trims and lower-cases an address so lookups and uniqueness
// checks are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Expired reports whether a deadline has passed at now. A deadline equal to
// now is still valid.
func Expired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}
