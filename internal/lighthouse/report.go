package lighthouse

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shyim/lighthouse-bench/internal/models"
)

const (
	AuditLCP = "largest-contentful-paint"
	AuditFCP = "first-contentful-paint"
	AuditTBT = "total-blocking-time"
)

// Report is the subset of the audit report we read. Every figure is optional.
type Report struct {
	Categories   Categories       `json:"categories"`
	Audits       map[string]Audit `json:"audits"`
	RuntimeError *RuntimeError    `json:"runtimeError,omitempty"`
}

type Categories struct {
	Performance *Category `json:"performance"`
}

type Category struct {
	Score *float64 `json:"score"`
}

type Audit struct {
	NumericValue *float64 `json:"numericValue"`
}

// RuntimeError is set by the auditor when the page could not be audited at all.
type RuntimeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RuntimeError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ParseReport decodes raw report JSON. A runtime error in the report is
// returned as the error.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse audit report: %w", err)
	}
	if r.RuntimeError != nil && (r.RuntimeError.Code != "" || r.RuntimeError.Message != "") {
		return nil, r.RuntimeError
	}
	return &r, nil
}

// Metrics normalizes the report into whole-number figures. Missing values
// become 0.
func (r *Report) Metrics() models.Metrics {
	var score float64
	if r.Categories.Performance != nil && r.Categories.Performance.Score != nil {
		score = *r.Categories.Performance.Score
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		score = 0
	}

	return models.Metrics{
		Score: clamp(int(math.Round(score*100)), 0, 100),
		LCPMs: r.millis(AuditLCP),
		FCPMs: r.millis(AuditFCP),
		TBTMs: r.millis(AuditTBT),
	}
}

func (r *Report) millis(id string) int {
	a, ok := r.Audits[id]
	if !ok || a.NumericValue == nil {
		return 0
	}
	v := *a.NumericValue
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return clamp(int(math.Round(v)), 0, math.MaxInt32)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
