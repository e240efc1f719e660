// SPDX-License-Identifier: MIT

package gitmine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFilterMatches(t *testing.T) {
	f, err := NewPathFilter([]string{`.*\.md$`}, []string{`.*\.go$`, `.*\.rs$`})
	require.NoError(t, err)

	assert.True(t, f.Matches("internal/api/server.go"))
	assert.True(t, f.Matches("src/main.rs"))
	assert.False(t, f.Matches("README.md"))
	assert.False(t, f.Matches("Makefile"))
}

func TestPathFilterCaseInsensitive(t *testing.T) {
	f, err := IncludeOnly(`.*\.cs$`)
	require.NoError(t, err)

	assert.True(t, f.Matches("Program.CS"))
	assert.True(t, f.Matches("program.cs"))
}

func TestPathFilterAcceptAll(t *testing.T) {
	f := AcceptAll()

	assert.True(t, f.Matches("anything/at.all"))
	assert.True(t, f.Matches(""))
}

func TestPathFilterExcludeWins(t *testing.T) {
	f, err := NewPathFilter([]string{`vendor/.*`}, []string{`.*\.go$`})
	require.NoError(t, err)

	assert.False(t, f.Matches("vendor/pkg/mod.go"))
	assert.True(t, f.Matches("cmd/main.go"))
}

func TestPathFilterJoinsPatterns(t *testing.T) {
	f, err := NewPathFilter([]string{`.*\.lock$`, `.*\.sum$`}, nil)
	require.NoError(t, err)

	assert.False(t, f.Matches("Cargo.lock"))
	assert.False(t, f.Matches("go.sum"))
	assert.True(t, f.Matches("go.work"))
	assert.Equal(t, `(.*\.lock$|.*\.sum$)`, f.ExcludePattern())
}

func TestPathFilterInvalidPattern(t *testing.T) {
	_, err := NewPathFilter(nil, []string{`([`})
	require.Error(t, err)
}
