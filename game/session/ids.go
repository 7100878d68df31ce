package session

import (
	"crypto/rand"
	"strings"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Token lengths mirror the shapes viewers see in URLs: short uppercase
// game and series ids, a longer admin key, compact player ids.
const (
	gameIDLen   = 8
	adminKeyLen = 12
	playerIDLen = 6
	seriesIDLen = 10
)

// TokenGenerator produces random non-cryptographic identifiers for
// games, players, series, and admin keys. Collisions are possible in
// principle; the id space is large enough for a scorekeeping tool.
type TokenGenerator struct{}

// NewTokenGenerator creates the default generator.
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

func randomToken(length int) string {
	buf := make([]byte, length)
	rand.Read(buf)
	var b strings.Builder
	b.Grow(length)
	for _, c := range buf {
		b.WriteByte(idAlphabet[int(c)%len(idAlphabet)])
	}
	return b.String()
}

// GameID returns an 8-character uppercase game token.
func (g *TokenGenerator) GameID() string {
	return strings.ToUpper(randomToken(gameIDLen))
}

// AdminKey returns a 12-character uppercase admin secret.
func (g *TokenGenerator) AdminKey() string {
	return strings.ToUpper(randomToken(adminKeyLen))
}

// PlayerID returns a 6-character lowercase player token.
func (g *TokenGenerator) PlayerID() string {
	return randomToken(playerIDLen)
}

// SeriesID returns a 10-character uppercase series token.
func (g *TokenGenerator) SeriesID() string {
	return strings.ToUpper(randomToken(seriesIDLen))
}
