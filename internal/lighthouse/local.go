package lighthouse

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// LocalLauncher starts headless Chrome on this host and runs the lighthouse
// binary against its debugging port.
type LocalLauncher struct {
	LighthouseBin string
	ChromePath    string
}

func NewLocalLauncher(lighthouseBin, chromePath string) *LocalLauncher {
	if lighthouseBin == "" {
		lighthouseBin = "lighthouse"
	}
	return &LocalLauncher{LighthouseBin: lighthouseBin, ChromePath: chromePath}
}

func (l *LocalLauncher) Launch(ctx context.Context) (Session, error) {
	// Chrome picks the port itself and reports it in the profile dir.
	userDataDir, err := os.MkdirTemp("", "chromedp-runner")
	if err != nil {
		return nil, fmt.Errorf("failed to create chrome profile dir: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserDataDir(userDataDir),
		chromedp.Flag("remote-debugging-port", "0"),
	)
	if l.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(l.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Run with no actions only starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		os.RemoveAll(userDataDir)
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	session := &localSession{
		bin:           l.LighthouseBin,
		userDataDir:   userDataDir,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}

	port, err := devToolsPort(userDataDir)
	if err != nil {
		session.Close()
		return nil, err
	}
	session.port = port

	logrus.WithField("port", port).Debug("Chrome launched")

	return session, nil
}

type localSession struct {
	bin           string
	port          int
	userDataDir   string
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func (s *localSession) Audit(ctx context.Context, url string, cfg Config) ([]byte, error) {
	args := append(cfg.Args(url), "--port="+strconv.Itoa(s.port))
	cmd := exec.CommandContext(ctx, s.bin, args...)

	var stdout bytes.Buffer
	var stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("lighthouse failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

func (s *localSession) Close() error {
	err := chromedp.Cancel(s.browserCtx)
	s.cancelBrowser()
	s.cancelAlloc()
	os.RemoveAll(s.userDataDir)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("failed to close chrome: %w", err)
	}
	return nil
}
