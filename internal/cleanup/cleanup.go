package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Prefixes of profile directories left behind by Chrome, chromedp and the
// auditor when a browser is killed mid-run.
var Prefixes = []string{
	".org.chromium.Chromium.",
	"chromedp-runner",
	"lighthouse.",
}

// Start removes stale browser temp dirs now and then every interval until
// ctx is done.
func Start(ctx context.Context, interval, maxAge time.Duration) {
	logrus.Infof("Browser temp file cleanup scheduled every %s", interval)
	Run(os.TempDir(), maxAge, time.Now())

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				Run(os.TempDir(), maxAge, now)
			}
		}
	}()
}

// Run deletes matching directories in dir older than maxAge and returns how
// many were removed.
func Run(dir string, maxAge time.Duration, now time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logrus.Warnf("Failed to read temp dir for cleanup: %v", err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !hasPrefix(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= maxAge {
			continue
		}

		fullPath := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(fullPath); err != nil {
			logrus.Warnf("Failed to clean up %s: %v", fullPath, err)
			continue
		}
		removed++
		logrus.Infof("Cleaned up browser temp directory (%dmin old): %s", int(age.Minutes()), fullPath)
	}

	return removed
}

func hasPrefix(name string) bool {
	for _, p := range Prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
