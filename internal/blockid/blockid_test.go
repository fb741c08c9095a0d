package blockid_test

import (
	"math/rand/v2"
	"testing"

	"anchorlink/internal/blockid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	g := blockid.New(blockid.DefaultLength)

	for i := 0; i < 200; i++ {
		id := g.Generate()
		require.Len(t, id, blockid.DefaultLength)
		require.Regexp(t, `^[0-9a-z]+$`, id)
		require.True(t, blockid.Valid(id))
	}
}

func TestNewClampsLength(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"default", 6, 6},
		{"too short", 2, blockid.DefaultLength},
		{"too long", 64, blockid.DefaultLength},
		{"lower bound", blockid.MinLength, blockid.MinLength},
		{"upper bound", blockid.MaxLength, blockid.MaxLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, blockid.New(tt.length).Length())
		})
	}
}

func TestGenerateIsNotDeterministic(t *testing.T) {
	g := blockid.New(blockid.DefaultLength)
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		seen[g.Generate()] = struct{}{}
	}
	// 36^6 possibilities; 100 draws colliding more than once is
	// vanishingly unlikely.
	assert.Greater(t, len(seen), 98)
}

func TestGenerateAvoiding(t *testing.T) {
	// Replay the same source to learn which ids will come out first.
	peek := blockid.NewWithSource(4, rand.NewPCG(1, 2))
	known := map[string]struct{}{}
	for i := 0; i < 8; i++ {
		known[peek.Generate()] = struct{}{}
	}

	g := blockid.NewWithSource(4, rand.NewPCG(1, 2))
	id := g.GenerateAvoiding(known)

	_, taken := known[id]
	assert.False(t, taken)
	// All eight attempts at length 4 collide, so the id is widened.
	assert.Len(t, id, 5)
}

func TestValid(t *testing.T) {
	assert.True(t, blockid.Valid("abc123"))
	assert.True(t, blockid.Valid("my-block"))
	assert.False(t, blockid.Valid(""))
	assert.False(t, blockid.Valid("has space"))
	assert.False(t, blockid.Valid("^abc"))
}
