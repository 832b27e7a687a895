package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shyim/lighthouse-bench/internal/models"
	"github.com/shyim/lighthouse-bench/internal/state"
	"github.com/shyim/lighthouse-bench/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	failing map[string]bool
	score   int
}

func (f *fakeServer) Measure(ctx context.Context, url, presetKey string) (models.MeasurementResult, error) {
	if f.failing[url] {
		return models.MeasurementResult{}, errors.New("audit timed out")
	}
	if presetKey == "" {
		presetKey = "no-throttling"
	}
	return models.MeasurementResult{
		URL:        url,
		PresetKey:  presetKey,
		MeasuredAt: time.Now().UTC(),
		Metrics:    models.Metrics{Score: f.score, LCPMs: 1000, FCPMs: 500, TBTMs: 20},
	}, nil
}

func (f *fakeServer) Presets(ctx context.Context) ([]models.PresetInfo, error) {
	return []models.PresetInfo{{Key: "no-throttling", DisplayName: "No throttling"}, {Key: "legacy-3g", DisplayName: "Legacy 3G"}}, nil
}

func newTestApp(srv *fakeServer, stdin string) (*app, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &app{
		tracker: tracker.New(state.NewMemory()),
		server:  srv,
		in:      strings.NewReader(stdin),
		out:     out,
	}, out
}

func run(t *testing.T, a *app, args ...string) {
	t.Helper()
	require.NoError(t, a.run(context.Background(), args))
}

func TestURLCommands(t *testing.T) {
	a, out := newTestApp(&fakeServer{}, "")
	ctx := context.Background()

	run(t, a, "urls", "add", "https://a.example", "https://b.example")
	assert.Error(t, a.run(ctx, []string{"urls", "add", "https://a.example"}))
	assert.Error(t, a.run(ctx, []string{"urls", "add", "not a url"}))

	out.Reset()
	run(t, a, "urls", "ls")
	assert.Equal(t, "https://a.example\nhttps://b.example\n", out.String())

	run(t, a, "urls", "rm", "https://a.example")
	urls, err := a.tracker.URLs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.example"}, urls)
}

func TestPresetsCommand(t *testing.T) {
	a, out := newTestApp(&fakeServer{}, "")

	run(t, a, "presets")
	assert.Contains(t, out.String(), "legacy-3g")
	assert.Contains(t, out.String(), "Legacy 3G")
}

func TestMeasureAndSave(t *testing.T) {
	srv := &fakeServer{score: 90, failing: map[string]bool{"https://down.example": true}}
	a, out := newTestApp(srv, "")
	ctx := context.Background()

	run(t, a, "urls", "add", "https://a.example", "https://down.example")
	run(t, a, "measure", "--preset", "legacy-3g", "--save")

	assert.Contains(t, out.String(), "[2/2] https://down.example FAILED: audit timed out")
	assert.Contains(t, out.String(), "Measured 1 of 2 URLs")
	assert.Contains(t, out.String(), "Saved record 1 with 1 URLs")

	records, err := a.tracker.Records.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].Measurements, 1)
	assert.Equal(t, "https://a.example", records[0].Measurements[0].URL)

	log, err := a.tracker.Log.All(ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "legacy-3g", log[0].PresetKey)
}

func TestMeasureWithoutSaveKeepsRecords(t *testing.T) {
	a, out := newTestApp(&fakeServer{score: 70}, "")
	ctx := context.Background()

	run(t, a, "urls", "add", "https://a.example")
	run(t, a, "measure")

	records, err := a.tracker.Records.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, a.tracker.PendingCount())

	out.Reset()
	run(t, a, "avg")
	assert.Contains(t, out.String(), "https://a.example")
	assert.Contains(t, out.String(), "70")
}

func TestAverageCommandsWithoutData(t *testing.T) {
	a, out := newTestApp(&fakeServer{}, "")

	run(t, a, "urls", "add", "https://a.example")

	out.Reset()
	run(t, a, "avg")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "-")

	out.Reset()
	run(t, a, "record-avg")
	assert.Equal(t, "No records saved\n", out.String())
}

func TestRecordsCommands(t *testing.T) {
	a, out := newTestApp(&fakeServer{score: 80}, "n\n")
	ctx := context.Background()

	run(t, a, "urls", "add", "https://a.example")
	run(t, a, "measure", "--save")
	run(t, a, "measure", "--save")

	out.Reset()
	run(t, a, "records", "ls")
	assert.Contains(t, out.String(), "#1")
	assert.Contains(t, out.String(), "#2")

	run(t, a, "records", "rm", "1")
	records, err := a.tracker.Records.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].RecordNumber)

	assert.ErrorIs(t, a.run(ctx, []string{"records", "rm", "5"}), tracker.ErrRecordNotFound)

	out.Reset()
	run(t, a, "records", "reset")
	assert.Contains(t, out.String(), "Aborted")
	records, err = a.tracker.Records.All(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	run(t, a, "records", "reset", "--yes")
	records, err = a.tracker.Records.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExport(t *testing.T) {
	a, _ := newTestApp(&fakeServer{score: 95}, "")

	run(t, a, "urls", "add", "https://a.example")
	run(t, a, "measure")

	target := filepath.Join(t.TempDir(), "export.zip")
	run(t, a, "export", "--out", target)

	r, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer r.Close()

	files := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(data)
	}

	require.Len(t, files, 3)
	assert.JSONEq(t, `["https://a.example"]`, files["urls.json"])
	assert.Contains(t, files["measurements.json"], `"score": 95`)
	assert.JSONEq(t, `[]`, files["records.json"])
}

func TestUnknownCommand(t *testing.T) {
	a, _ := newTestApp(&fakeServer{}, "")
	assert.Error(t, a.run(context.Background(), []string{"frobnicate"}))
}
