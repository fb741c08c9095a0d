// Package blockid mints the short identifiers appended to markdown blocks
// as a ` ^id` suffix.
package blockid

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
)

const (
	alphabet      = "0123456789abcdefghijklmnopqrstuvwxyz"
	DefaultLength = 6
	MinLength     = 4
	MaxLength     = 32

	// attempts per length before GenerateAvoiding widens the identifier.
	attempts = 8
)

var validID = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Generator produces random base36 identifiers. The zero value is not
// usable; create one with New.
type Generator struct {
	length int
	mu     sync.Mutex
	rnd    *rand.Rand // nil means the runtime's global source
}

// New returns a Generator for identifiers of the given length. Lengths
// outside [MinLength, MaxLength] fall back to DefaultLength.
func New(length int) *Generator {
	if length < MinLength || length > MaxLength {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// NewWithSource is New with a fixed randomness source, used by tests.
func NewWithSource(length int, src rand.Source) *Generator {
	g := New(length)
	g.rnd = rand.New(src)
	return g
}

// Length reports the identifier length.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a fresh identifier. No uniqueness check is made.
func (g *Generator) Generate() string {
	return g.generate(g.length)
}

// GenerateAvoiding returns an identifier that is not in known. After a
// few collisions at the configured length the identifier grows by one
// character, so the loop always terminates.
func (g *Generator) GenerateAvoiding(known map[string]struct{}) string {
	length := g.length
	for {
		for i := 0; i < attempts; i++ {
			id := g.generate(length)
			if _, taken := known[id]; !taken {
				return id
			}
		}
		length++
	}
}

func (g *Generator) generate(length int) string {
	var b strings.Builder
	b.Grow(length)

	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i < length; i++ {
		b.WriteByte(alphabet[g.intN(len(alphabet))])
	}
	return b.String()
}

func (g *Generator) intN(n int) int {
	if g.rnd == nil {
		return rand.IntN(n)
	}
	return g.rnd.IntN(n)
}

// Valid reports whether id may be used as a block identifier.
func Valid(id string) bool {
	return validID.MatchString(id)
}
