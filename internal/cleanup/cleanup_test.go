package cleanup_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shyim/lighthouse-bench/internal/cleanup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirAged(t *testing.T, dir, name string, age time.Duration, now time.Time) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(p, 0o755))
	mt := now.Add(-age)
	require.NoError(t, os.Chtimes(p, mt, mt))
	return p
}

func TestRunRemovesOnlyStaleBrowserDirs(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	staleChrome := mkdirAged(t, dir, ".org.chromium.Chromium.abc123", time.Hour, now)
	staleRunner := mkdirAged(t, dir, "chromedp-runner4242", 10*time.Minute, now)
	fresh := mkdirAged(t, dir, "chromedp-runner9999", time.Minute, now)
	unrelated := mkdirAged(t, dir, "go-build123", time.Hour, now)

	file := filepath.Join(dir, "lighthouse.file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	removed := cleanup.Run(dir, 5*time.Minute, now)
	assert.Equal(t, 2, removed)

	assert.NoDirExists(t, staleChrome)
	assert.NoDirExists(t, staleRunner)
	assert.DirExists(t, fresh)
	assert.DirExists(t, unrelated)
	assert.FileExists(t, file)
}

func TestRunMissingDir(t *testing.T) {
	assert.Equal(t, 0, cleanup.Run(filepath.Join(t.TempDir(), "missing"), time.Minute, time.Now()))
}
