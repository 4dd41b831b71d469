package httpserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.True(t, isFile(file))
	assert.False(t, isFile(dir))
	assert.False(t, isFile(filepath.Join(dir, "missing.html")))
}
