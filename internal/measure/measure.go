// Package measure runs a single audit of one URL under a throttling preset
// and normalizes the outcome into a MeasurementResult.
package measure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shyim/lighthouse-bench/internal/lighthouse"
	"github.com/shyim/lighthouse-bench/internal/models"
	"github.com/shyim/lighthouse-bench/internal/preset"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AuditFailure is returned when the browser context could not be acquired
// or the auditor reported a fatal error.
type AuditFailure struct {
	URL    string
	Preset string
	Err    error
}

func (e *AuditFailure) Error() string {
	return fmt.Sprintf("audit of %s failed: %v", e.URL, e.Err)
}

func (e *AuditFailure) Unwrap() error {
	return e.Err
}

// ReportArchive stores raw audit reports.
type ReportArchive interface {
	PutReport(ctx context.Context, id string, report []byte) error
}

type Executor struct {
	launcher         lighthouse.Launcher
	catalog          *preset.Catalog
	archive          ReportArchive
	maxWaitForLoadMs int
	now              func() time.Time
	tracer           trace.Tracer
}

type Option func(*Executor)

// WithArchive uploads every successful report to a.
func WithArchive(a ReportArchive) Option {
	return func(e *Executor) { e.archive = a }
}

func WithMaxWaitForLoad(ms int) Option {
	return func(e *Executor) { e.maxWaitForLoadMs = ms }
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(launcher lighthouse.Launcher, catalog *preset.Catalog, opts ...Option) *Executor {
	e := &Executor{
		launcher: launcher,
		catalog:  catalog,
		now:      time.Now,
		tracer:   otel.Tracer("github.com/shyim/lighthouse-bench/internal/measure"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Presets lists the catalog the executor resolves against.
func (e *Executor) Presets() []preset.Preset {
	return e.catalog.List()
}

// Measure audits url under the preset named by presetKey. The url must
// already be a valid absolute URL. Exactly one browser context is acquired
// and it is released before Measure returns.
func (e *Executor) Measure(ctx context.Context, url, presetKey string) (models.MeasurementResult, error) {
	p := e.catalog.Resolve(presetKey)

	ctx, span := e.tracer.Start(ctx, "measure", trace.WithAttributes(
		attribute.String("url", url),
		attribute.String("preset", p.Key),
	))
	defer span.End()

	raw, err := e.audit(ctx, url, p)
	var report *lighthouse.Report
	if err == nil {
		report, err = lighthouse.ParseReport(raw)
	}
	if err != nil {
		failure := &AuditFailure{URL: url, Preset: p.Key, Err: err}
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
		logrus.WithFields(logrus.Fields{"url": url, "preset": p.Key}).Errorf("Audit failed: %v", err)
		return models.MeasurementResult{}, failure
	}

	result := models.MeasurementResult{
		URL:        url,
		MeasuredAt: e.now().UTC(),
		PresetKey:  p.Key,
		Metrics:    report.Metrics(),
	}

	if e.archive != nil {
		id := uuid.NewString()
		if err := e.archive.PutReport(ctx, id, raw); err != nil {
			logrus.WithField("url", url).Warnf("Failed to archive report: %v", err)
		} else {
			result.ReportID = id
		}
	}

	span.SetAttributes(
		attribute.Int("score", result.Metrics.Score),
		attribute.Int("lcp_ms", result.Metrics.LCPMs),
	)
	logrus.WithFields(logrus.Fields{
		"url":    url,
		"preset": p.Key,
		"score":  result.Metrics.Score,
	}).Info("Audit completed")

	return result, nil
}

// audit owns the browser context for the duration of one run.
func (e *Executor) audit(ctx context.Context, url string, p preset.Preset) (raw []byte, err error) {
	session, err := e.launcher.Launch(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logrus.WithField("url", url).Warnf("Failed to release browser: %v", cerr)
		}
	}()

	return session.Audit(ctx, url, lighthouse.NewConfig(p, e.maxWaitForLoadMs))
}
