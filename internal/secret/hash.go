// Package secret hashes passwords and PINs into a salted one-way form and
// generates the random codes and tokens handed out by the auth flows.
package secret

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const separator = ":"

// Params tune the argon2id digest. Stored hashes only verify under the
// params they were produced with, so they are fixed per deployment.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams follow the OWASP argon2id minimum (19 MiB, t=2).
var DefaultParams = Params{
	Time:    2,
	Memory:  19 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

// Hasher produces and checks "salt:digest" strings, both hex encoded.
type Hasher struct {
	params Params
	rand   io.Reader
}

// NewHasher returns a Hasher. A nil r uses crypto/rand.
func NewHasher(p Params, r io.Reader) *Hasher {
	if r == nil {
		r = rand.Reader
	}
	if p.SaltLen < 8 {
		p.SaltLen = 8
	}
	return &Hasher{params: p, rand: r}
}

// Hash salts and digests plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	digest := h.digest(plaintext, salt)
	return hex.EncodeToString(salt) + separator + hex.EncodeToString(digest), nil
}

// Verify recomputes the digest with the stored salt. Malformed stored forms
// never match.
func (h *Hasher) Verify(plaintext, stored string) bool {
	saltHex, digestHex, ok := strings.Cut(stored, separator)
	if !ok || saltHex == "" || digestHex == "" {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(digestHex)
	if err != nil || len(want) != int(h.params.KeyLen) {
		return false
	}
	return subtle.ConstantTimeCompare(h.digest(plaintext, salt), want) == 1
}

func (h *Hasher) digest(plaintext string, salt []byte) []byte {
	return argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
}
