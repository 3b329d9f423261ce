package namegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFormat(t *testing.T) {
	name, err := Generate()
	require.NoError(t, err)

	parts := strings.Split(name, "-")
	require.Len(t, parts, 3)
	assert.Contains(t, adjectives, parts[0])
	assert.Contains(t, animals, parts[1])
	assert.Contains(t, colors, parts[2])
}

func TestGenerateVariesAcrossCalls(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		name, err := Generate()
		require.NoError(t, err)
		seen[name] = true
	}
	assert.Greater(t, len(seen), 1, "expected some variation across 50 samples")
}

func TestGenerateUniqueSkipsTaken(t *testing.T) {
	taken := map[string]bool{}
	calls := 0
	exists := func(name string) bool {
		calls++
		if !taken[name] {
			return false
		}
		return true
	}

	// Generate one name freely, then mark it taken: any candidate that
	// repeats it is reported as taken, so GenerateUnique must return a
	// different name.
	first, err := GenerateUnique(func(name string) bool { return false })
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	taken[first] = true
	name, err := GenerateUnique(exists)
	require.NoError(t, err)
	assert.NotEqual(t, first, name)
}

func TestGenerateUniqueExhaustsAttempts(t *testing.T) {
	alwaysTaken := func(string) bool { return true }
	_, err := GenerateUnique(alwaysTaken)
	assert.Equal(t, ErrNameAllocationFailed, err)
}
