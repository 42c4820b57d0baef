package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		key     string
		match   bool
	}{
		{"plants", "plants", true},
		{"plants", "plants:list:[[],{}]", true},
		{"plants", "plants_archive:[[],{}]", false},
		{"plants", "product:[[],{}]", false},
		{"plants:list", "plants:list:[[1],{}]", true},
		{"plants:list", "plants:detail:[[1],{}]", false},
		{"plant*", "plants:list", true},
		{"plant*", "plant_types:[[],{}]", true},
		{"plant*", "products", false},
		{"*", "anything:at:all", true},
		{"  dashboard  ", "dashboard:main:[[],{}]", true},
	}

	for _, tt := range tests {
		p, err := ParsePattern(tt.pattern)
		require.NoError(t, err, tt.pattern)
		assert.Equal(t, tt.match, p.Match(tt.key), "pattern %q key %q", tt.pattern, tt.key)
	}
}

func TestParsePatternRejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "pl*nts", "*plants", "a*b*"} {
		_, err := ParsePattern(in)
		assert.ErrorIs(t, err, ErrInvalidNamespace, "pattern %q", in)
	}
}

func TestPatternString(t *testing.T) {
	t.Parallel()

	p, err := ParsePattern("plants")
	require.NoError(t, err)
	assert.Equal(t, "plants", p.String())
	assert.Equal(t, "plants", p.ScanPrefix())

	raw, err := ParsePattern("plant*")
	require.NoError(t, err)
	assert.Equal(t, "plant*", raw.String())
	assert.Equal(t, "plant", raw.ScanPrefix())

	assert.Equal(t, "*", MatchAll.String())
	assert.Empty(t, MatchAll.ScanPrefix())
}

func TestNamespacePattern(t *testing.T) {
	t.Parallel()

	p, err := NamespacePattern("clients")
	require.NoError(t, err)
	assert.True(t, p.Match("clients:list:[[],{}]"))
	assert.False(t, p.Match("clientsx"))

	_, err = NamespacePattern("")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
	_, err = NamespacePattern("a*")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}
