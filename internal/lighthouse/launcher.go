package lighthouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Launcher acquires an isolated browser context for a single audit.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one browser context. Close must be called on every exit path.
type Session interface {
	// Audit runs the auditor against url and returns the raw JSON report.
	Audit(ctx context.Context, url string, cfg Config) ([]byte, error)
	Close() error
}

// ChromeFlags are passed to every browser we start.
var ChromeFlags = []string{"--headless", "--disable-gpu", "--no-sandbox"}

// devToolsPort reads the debugging port Chrome bound from the
// DevToolsActivePort file it writes into its profile directory when started
// with --remote-debugging-port=0.
func devToolsPort(userDataDir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(userDataDir, "DevToolsActivePort"))
	if err != nil {
		return 0, fmt.Errorf("failed to read debugging port: %w", err)
	}

	line, _, _ := strings.Cut(string(data), "\n")
	port, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("invalid debugging port %q", line)
	}
	return port, nil
}
