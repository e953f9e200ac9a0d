package generator

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"
)

// RandomTokenType is an opaque random value handed out exactly once
type RandomTokenType string

func tokenTypeFromString(token string) RandomTokenType {
	if token == "" {
		panic("zero length token issued, this is probably the only reason to ever panic")
	}
	return RandomTokenType(token)
}

type RandomTokenGenerator struct{}

// CreateSecureToken returns 256 bits of randomness, base64url encoded
// (idea taken from https://github.com/netlify/gotrue/blob/master/crypto/crypto.go)
func (g *RandomTokenGenerator) CreateSecureToken() RandomTokenType {
	return g.CreateSecureTokenWithSize(32)
}

// CreateClientID returns a shorter public identifier for applications
func (g *RandomTokenGenerator) CreateClientID() RandomTokenType {
	return g.CreateSecureTokenWithSize(18)
}

func (*RandomTokenGenerator) CreateSecureTokenWithSize(size int) RandomTokenType {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err.Error()) // rand should never fail
	}
	return tokenTypeFromString(removePadding(base64.URLEncoding.EncodeToString(b)))
}

func removePadding(token string) string {
	return strings.TrimRight(token, "=")
}

// Hash is the lookup key under which an opaque value is persisted
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func New() *RandomTokenGenerator {
	return &RandomTokenGenerator{}
}
