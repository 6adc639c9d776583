// Package roomid generates the 6-character codes players type to find
// a room. Codes use Crockford's base32 alphabet so they survive being
// read aloud: no i, l, o or u.
package roomid

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length is the fixed code length.
const Length = 6

// RandSource supplies randomness, injectable for deterministic tests.
type RandSource interface {
	Intn(n int) int
}

// Generator produces room codes with configurable randomness.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil RandSource means crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new room code using crypto/rand.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new room code.
func (g *Generator) Generate() string {
	buf := make([]byte, Length)
	if g.randSource != nil {
		for i := range buf {
			buf[i] = alphabet[g.randSource.Intn(len(alphabet))]
		}
		return string(buf)
	}
	raw := make([]byte, Length)
	if _, err := rand.Read(raw); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	for i, b := range raw {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}

// Normalize lowercases a code and maps the easily-confused letters to
// their canonical digits, so "O1ABCD" and "01abcd" name the same room.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	replacer := strings.NewReplacer("o", "0", "i", "1", "l", "1", "u", "v")
	return replacer.Replace(code)
}

// Validate checks that a code is exactly Length characters from the
// code alphabet. Callers should Normalize first.
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("room code must be exactly %d characters, got %d", Length, len(code))
	}
	for i, ch := range code {
		if !strings.ContainsRune(alphabet, ch) {
			return fmt.Errorf("invalid character %c at position %d", ch, i)
		}
	}
	return nil
}
