package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pd15/saocontacts/internal/timex"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims carries the session handle in the "sid" claim.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Tokens signs session handles into HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	clock  timex.Clock
}

func NewTokens(secret []byte, ttl time.Duration, clock timex.Clock) *Tokens {
	if clock == nil {
		clock = timex.RealClock{}
	}
	return &Tokens{secret: secret, ttl: ttl, clock: clock}
}

func (t *Tokens) Issue(handle string) (string, error) {
	now := t.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		SessionID: handle,
	})

	return token.SignedString(t.secret)
}

// Parse validates the token and returns the session handle inside it.
func (t *Tokens) Parse(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(tk *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	if !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidToken
	}

	return claims.SessionID, nil
}
