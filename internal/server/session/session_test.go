package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pd15/saocontacts/internal/server/models"
	"github.com/pd15/saocontacts/internal/timex"
)

func counterHandles() HandleFunc {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("h%d", n), nil
	}
}

func TestGateChecks(t *testing.T) {
	at := time.Now()
	user := New(&models.User{ID: 1, Username: "jdoe", Email: "jdoe@pd15.org"}, at)
	admin := New(&models.User{ID: 2, Username: "boss", Email: "boss@pd15.org", IsAdmin: true}, at)

	assert.False(t, IsAuthenticated(nil))
	assert.False(t, IsAdmin(nil))
	assert.False(t, IsAuthenticated(&Session{}))
	assert.False(t, IsAdmin(&Session{Admin: true}), "role without authentication is not admin")

	assert.True(t, IsAuthenticated(user))
	assert.False(t, IsAdmin(user))
	assert.True(t, IsAdmin(admin))
	assert.Equal(t, "jdoe@pd15.org", user.Email)
}

func TestRegistry_Lifecycle(t *testing.T) {
	clock := timex.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := NewRegistry(time.Hour, clock, counterHandles())

	s := New(&models.User{ID: 7, Username: "jdoe", Email: "jdoe@pd15.org"}, clock.Now())
	h, err := r.Begin(s)
	require.NoError(t, err)
	assert.Equal(t, "h1", h)

	got, err := r.Current(h)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, h, got.Handle)

	got.Admin = true
	again, err := r.Current(h)
	require.NoError(t, err)
	assert.False(t, again.Admin, "Current returns a copy")

	r.End(h)
	_, err = r.Current(h)
	assert.ErrorIs(t, err, ErrUnknownSession)
	r.End(h)
}

func TestRegistry_Expiry(t *testing.T) {
	clock := timex.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := NewRegistry(time.Hour, clock, counterHandles())

	h, err := r.Begin(New(&models.User{ID: 1}, clock.Now()))
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	_, err = r.Current(h)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = r.Current(h)
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.Zero(t, r.Len())
}

func TestRegistry_BeginDropsExpiredSessions(t *testing.T) {
	clock := timex.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := NewRegistry(time.Hour, clock, counterHandles())

	for i := 0; i < 1000; i++ {
		_, err := r.Begin(New(&models.User{ID: int64(i)}, clock.Now()))
		require.NoError(t, err)
	}
	require.Equal(t, 1000, r.Len())

	clock.Advance(30 * time.Minute)
	fresh, err := r.Begin(New(&models.User{ID: 5000}, clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1001, r.Len(), "nothing has expired yet")

	clock.Advance(48 * time.Hour)
	last, err := r.Begin(New(&models.User{ID: 5001}, clock.Now()))
	require.NoError(t, err)

	assert.Equal(t, 1, r.Len())
	_, err = r.Current(fresh)
	assert.ErrorIs(t, err, ErrUnknownSession)
	_, err = r.Current(last)
	assert.NoError(t, err)
}

func TestRegistry_ZeroTTLKeepsSessions(t *testing.T) {
	clock := timex.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := NewRegistry(0, clock, counterHandles())

	_, err := r.Begin(New(&models.User{ID: 1}, clock.Now()))
	require.NoError(t, err)
	clock.Advance(365 * 24 * time.Hour)
	_, err = r.Begin(New(&models.User{ID: 2}, clock.Now()))
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
}

func TestRegistry_EndAccountAndSetAdmin(t *testing.T) {
	r := NewRegistry(0, nil, counterHandles())
	now := time.Now()

	a1, _ := r.Begin(New(&models.User{ID: 1, Email: "a@pd15.org"}, now))
	a2, _ := r.Begin(New(&models.User{ID: 1, Email: "a@pd15.org"}, now))
	b, _ := r.Begin(New(&models.User{ID: 2, Email: "b@pd15.org"}, now))

	r.SetAdmin("A@pd15.org", true)
	s, err := r.Current(a2)
	require.NoError(t, err)
	assert.True(t, s.Admin)
	s, err = r.Current(b)
	require.NoError(t, err)
	assert.False(t, s.Admin)

	assert.Equal(t, 2, r.EndAccount("a@pd15.org"))
	_, err = r.Current(a1)
	assert.ErrorIs(t, err, ErrUnknownSession)
	_, err = r.Current(b)
	assert.NoError(t, err)
}

func TestRegistry_HandleFailure(t *testing.T) {
	r := NewRegistry(0, nil, func() (string, error) { return "", errors.New("no entropy") })

	_, err := r.Begin(&Session{})
	require.Error(t, err)
	assert.Zero(t, r.Len())
}

func TestTokens_RoundTrip(t *testing.T) {
	clock := timex.NewFakeClock(time.Now())
	tokens := NewTokens([]byte("super-secret"), time.Hour, clock)

	tok, err := tokens.Issue("handle-123")
	require.NoError(t, err)

	h, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "handle-123", h)
}

func TestTokens_Expired(t *testing.T) {
	clock := timex.NewFakeClock(time.Now())
	tokens := NewTokens([]byte("secret"), time.Hour, clock)

	tok, err := tokens.Issue("h")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = tokens.Parse(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokens_WrongSecretAndGarbage(t *testing.T) {
	tok, err := NewTokens([]byte("right"), time.Hour, nil).Issue("h")
	require.NoError(t, err)

	wrong := NewTokens([]byte("wrong"), time.Hour, nil)
	_, err = wrong.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = wrong.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsOtherAlgorithmsAndMissingSID(t *testing.T) {
	secret := []byte("secret")
	tokens := NewTokens(secret, time.Hour, nil)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		SessionID:        "h",
	}).SignedString(secret)
	require.NoError(t, err)
	_, err = tokens.Parse(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(secret)
	require.NoError(t, err)
	_, err = tokens.Parse(noSID)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
