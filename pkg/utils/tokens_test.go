package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens(t *testing.T) {
	counter, err := NewTokenCounter()
	require.NoError(t, err)

	assert.Zero(t, counter.CountTokens(""))

	n := counter.CountTokens("Create a short post about desk stretches for office workers.")
	assert.Greater(t, n, 5)
	assert.Less(t, n, 30)
}

// TestCountTokensNilCounter verifies the character-based fallback on a nil
// counter, which the capability factory relies on.
func TestCountTokensNilCounter(t *testing.T) {
	var counter *TokenCounter
	assert.Equal(t, 10, counter.CountTokens("0123456789012345678901234567890123456789"))
}

func TestCountTokensSimple(t *testing.T) {
	assert.Greater(t, CountTokensSimple("hello world"), 0)
}
