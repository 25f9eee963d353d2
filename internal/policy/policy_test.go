package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsDomainAllowed(t *testing.T) {
	p := Default()

	tests := []struct {
		email string
		want  bool
	}{
		{"alice@pd15.org", true},
		{"Alice@PD15.ORG", true},
		{"  bob@pd15.state.fl.us ", true},
		{"eve@gmail.com", false},
		{"eve@notpd15.org", false},
		{"eve@pd15.org.evil.com", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.IsDomainAllowed(tt.email), tt.email)
	}
}

func TestIsDomainAllowed_SuffixWithoutAt(t *testing.T) {
	p := Policy{AllowedDomains: []string{"example.gov", ""}}

	assert.True(t, p.IsDomainAllowed("x@example.gov"))
	assert.False(t, p.IsDomainAllowed("x@badexample.gov"))
}

func TestIsFormatValid(t *testing.T) {
	valid := []string{"alice@pd15.org", "a.b+c_d%e-f@sub.pd15.state.fl.us"}
	invalid := []string{"alice", "alice@", "@pd15.org", "alice@pd15", "alice@pd15.o", "al ice@pd15.org", "alice@@pd15.org"}

	for _, e := range valid {
		assert.True(t, IsFormatValid(e), e)
	}
	for _, e := range invalid {
		assert.False(t, IsFormatValid(e), e)
	}
}

func TestMeetsPasswordPolicy(t *testing.T) {
	assert.False(t, MeetsPasswordPolicy(""))
	assert.False(t, MeetsPasswordPolicy("1234567"))
	assert.True(t, MeetsPasswordPolicy("12345678"))
	assert.True(t, MeetsPasswordPolicy("Secretpass1"))
	assert.False(t, MeetsPasswordPolicy("пароль7"), "counted in runes, not bytes")
}

func TestDefaultWindows(t *testing.T) {
	p := Default()

	assert.Equal(t, 24*time.Hour, p.VerificationTTL)
	assert.Equal(t, time.Hour, p.ResetTTL)
	assert.Equal(t, 15*time.Minute, p.PINTTL)
	assert.Equal(t, 5, p.LockoutThreshold)
	assert.Equal(t, 30*time.Minute, p.LockoutDuration)
}

func TestExpired(t *testing.T) {
	deadline := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Expired(deadline, deadline))
	assert.False(t, Expired(deadline, deadline.Add(-time.Second)))
	assert.True(t, Expired(deadline, deadline.Add(time.Nanosecond)))
}
