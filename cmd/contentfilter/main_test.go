package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInput(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>x</p>"), 0o600))

	// when
	content, err := readInput(path)

	// then
	require.NoError(t, err)
	assert.Equal(t, []byte("<p>x</p>"), content)
}

func TestReadInputMissingFile(t *testing.T) {
	_, err := readInput(filepath.Join(t.TempDir(), "missing.html"))

	assert.Error(t, err)
}
