package lighthouse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevToolsPort(t *testing.T) {
	dir := t.TempDir()
	content := "39211\n/devtools/browser/5f0c8a1e-7c1b-4a4e-9d6b-2f7e3c1d9a10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DevToolsActivePort"), []byte(content), 0o600))

	port, err := devToolsPort(dir)
	require.NoError(t, err)
	assert.Equal(t, 39211, port)
}

func TestDevToolsPortMissingOrInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := devToolsPort(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "DevToolsActivePort"), []byte("0\n"), 0o600))
	_, err = devToolsPort(dir)
	assert.Error(t, err)
}
