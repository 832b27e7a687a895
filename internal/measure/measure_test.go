package measure_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shyim/lighthouse-bench/internal/lighthouse"
	"github.com/shyim/lighthouse-bench/internal/measure"
	"github.com/shyim/lighthouse-bench/internal/models"
	"github.com/shyim/lighthouse-bench/internal/preset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLauncher struct {
	launchErr error
	report    string
	auditErr  error
	launched  int
	closed    int
	configs   []lighthouse.Config
}

func (f *fakeLauncher) Launch(ctx context.Context) (lighthouse.Session, error) {
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	f.launched++
	return &fakeSession{l: f}, nil
}

type fakeSession struct {
	l *fakeLauncher
}

func (s *fakeSession) Audit(ctx context.Context, url string, cfg lighthouse.Config) ([]byte, error) {
	s.l.configs = append(s.l.configs, cfg)
	if s.l.auditErr != nil {
		return nil, s.l.auditErr
	}
	return []byte(s.l.report), nil
}

func (s *fakeSession) Close() error {
	s.l.closed++
	return nil
}

type fakeArchive struct {
	reports map[string][]byte
	err     error
}

func (a *fakeArchive) PutReport(ctx context.Context, id string, report []byte) error {
	if a.err != nil {
		return a.err
	}
	a.reports[id] = report
	return nil
}

const fullReport = `{
	"categories": {"performance": {"score": 0.92}},
	"audits": {
		"largest-contentful-paint": {"numericValue": 1500.4},
		"first-contentful-paint": {"numericValue": 700.6},
		"total-blocking-time": {"numericValue": 30}
	}
}`

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newExecutor(l lighthouse.Launcher, opts ...measure.Option) *measure.Executor {
	opts = append(opts, measure.WithClock(func() time.Time { return fixedNow }))
	return measure.NewExecutor(l, preset.NewCatalog(), opts...)
}

func TestMeasureSuccess(t *testing.T) {
	l := &fakeLauncher{report: fullReport}
	e := newExecutor(l)

	res, err := e.Measure(context.Background(), "https://example.com", "broadband")
	require.NoError(t, err)

	assert.Equal(t, models.MeasurementResult{
		URL:        "https://example.com",
		MeasuredAt: fixedNow,
		PresetKey:  "broadband",
		Metrics:    models.Metrics{Score: 92, LCPMs: 1500, FCPMs: 701, TBTMs: 30},
	}, res)
	assert.Equal(t, 1, l.launched)
	assert.Equal(t, 1, l.closed)
	require.Len(t, l.configs, 1)
	assert.Equal(t, lighthouse.ThrottlingSimulate, l.configs[0].ThrottlingMethod)
}

func TestMeasureUnknownPresetUsesDefault(t *testing.T) {
	l := &fakeLauncher{report: fullReport}
	e := newExecutor(l)

	res, err := e.Measure(context.Background(), "https://example.com", "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, preset.DefaultKey, res.PresetKey)
	assert.Equal(t, lighthouse.ThrottlingProvided, l.configs[0].ThrottlingMethod)
}

func TestMeasureLaunchFailure(t *testing.T) {
	l := &fakeLauncher{launchErr: errors.New("chrome not found")}
	e := newExecutor(l)

	_, err := e.Measure(context.Background(), "https://example.com", "")

	var failure *measure.AuditFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "https://example.com", failure.URL)
	assert.Contains(t, err.Error(), "chrome not found")
	assert.Equal(t, 0, l.closed)
}

func TestMeasureAuditFailureReleasesBrowser(t *testing.T) {
	l := &fakeLauncher{auditErr: errors.New("navigation timeout")}
	e := newExecutor(l)

	_, err := e.Measure(context.Background(), "https://example.com", "")

	var failure *measure.AuditFailure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Error(), "navigation timeout")
	assert.Equal(t, 1, l.launched)
	assert.Equal(t, 1, l.closed)
}

func TestMeasureRuntimeErrorInReport(t *testing.T) {
	l := &fakeLauncher{report: `{"runtimeError":{"code":"NO_FCP","message":"The page did not paint any content."}}`}
	e := newExecutor(l)

	_, err := e.Measure(context.Background(), "https://example.com", "")

	var failure *measure.AuditFailure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, err.Error(), "NO_FCP")
	assert.Equal(t, 1, l.closed)
}

func TestMeasureMissingFiguresDefaultToZero(t *testing.T) {
	l := &fakeLauncher{report: `{"categories":{},"audits":{}}`}
	e := newExecutor(l)

	res, err := e.Measure(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	assert.Equal(t, models.Metrics{}, res.Metrics)
}

func TestMeasureArchivesReport(t *testing.T) {
	archive := &fakeArchive{reports: map[string][]byte{}}
	e := newExecutor(&fakeLauncher{report: fullReport}, measure.WithArchive(archive))

	res, err := e.Measure(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	require.NotEmpty(t, res.ReportID)
	assert.JSONEq(t, fullReport, string(archive.reports[res.ReportID]))
}

func TestMeasureArchiveFailureIsNotFatal(t *testing.T) {
	archive := &fakeArchive{err: errors.New("bucket missing")}
	e := newExecutor(&fakeLauncher{report: fullReport}, measure.WithArchive(archive))

	res, err := e.Measure(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	assert.Empty(t, res.ReportID)
	assert.Equal(t, 92, res.Metrics.Score)
}

func TestMaxWaitForLoadIsPassedThrough(t *testing.T) {
	l := &fakeLauncher{report: fullReport}
	e := newExecutor(l, measure.WithMaxWaitForLoad(12000))

	_, err := e.Measure(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	assert.Equal(t, 12000, l.configs[0].MaxWaitForLoadMs)
}
