package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsesAlphabet(t *testing.T) {
	r := New()

	tok := r.Token(256)

	assert.Len(t, tok, 256)
	for _, c := range tok {
		assert.True(t, strings.ContainsRune(TokenAlphabet, c), "unexpected rune %q", c)
	}
}

func TestTokensDiffer(t *testing.T) {
	r := New()

	assert.NotEqual(t, r.Token(32), r.Token(32))
}

func TestTokenNonPositiveLength(t *testing.T) {
	r := New()

	assert.Empty(t, r.Token(0))
	assert.Empty(t, r.Token(-1))
}

func TestRejectionBoundIsMultipleOfAlphabet(t *testing.T) {
	assert.Zero(t, rejectAbove%len(TokenAlphabet))
	assert.LessOrEqual(t, rejectAbove, 256)
}
