package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
)

const (
	codeFloor = 100000
	codeSpan  = 900000 // 100000..999999

	opaqueTokenBytes = 32
)

// Generator draws codes and tokens from a cryptographically secure source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator. A nil r uses crypto/rand.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// NumericCode returns a 6-digit code uniform over 100000-999999.
func (g *Generator) NumericCode() (string, error) {
	n, err := rand.Int(g.rand, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeFloor), nil
}

// OpaqueToken returns a URL-safe token carrying 32 bytes of entropy.
func (g *Generator) OpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
