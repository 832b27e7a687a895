package models

import "time"

type MeasureRequest struct {
	URL    string `json:"url"`
	Preset string `json:"preset,omitempty"`
}

type ErrorResponse struct {
	Error   string  `json:"error"`
	Details *string `json:"details,omitempty"`
}

type PresetInfo struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
}

type Metrics struct {
	Score int `json:"score"`
	LCPMs int `json:"LCP_ms"`
	FCPMs int `json:"FCP_ms"`
	TBTMs int `json:"TBT_ms"`
}

// MeasurementResult is one audit of one URL under one preset.
type MeasurementResult struct {
	URL        string    `json:"url"`
	MeasuredAt time.Time `json:"measuredAt"`
	PresetKey  string    `json:"presetKey"`
	Metrics    Metrics   `json:"metrics"`
	ReportID   string    `json:"reportId,omitempty"`
}

// RecordEntry is a single URL's figures inside a saved record.
type RecordEntry struct {
	URL string `json:"url"`
	Metrics
}

// Record is a committed snapshot of one round.
type Record struct {
	RecordNumber int           `json:"recordNumber"`
	SavedAt      time.Time     `json:"savedAt"`
	Measurements []RecordEntry `json:"measurements"`
}

// Average is a per-URL mean. Count 0 means there was nothing to average.
type Average struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
	Score int    `json:"score"`
	LCPMs int    `json:"LCP_ms"`
	FCPMs int    `json:"FCP_ms"`
	TBTMs int    `json:"TBT_ms"`
}

func (a Average) HasData() bool {
	return a.Count > 0
}
