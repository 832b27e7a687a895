// Package preset holds the fixed catalog of throttling presets an audit can
// run under.
package preset

import (
	"github.com/sirupsen/logrus"
)

// Method selects how the auditor applies throttling.
type Method string

const (
	// Direct applies no artificial delay.
	Direct Method = "DIRECT"
	// Simulated models network and CPU constraints analytically.
	Simulated Method = "SIMULATED"
)

// DefaultKey is the preset used for unknown or empty keys.
const DefaultKey = "no-throttling"

// Network describes the network side of a preset.
type Network struct {
	RoundTripTimeMs  float64 `json:"roundTripTimeMs"`
	ThroughputKbps   float64 `json:"throughputKbps"`
	RequestLatencyMs float64 `json:"requestLatencyMs"`
	DownloadKbps     float64 `json:"downloadKbps"`
	UploadKbps       float64 `json:"uploadKbps"`
}

// Preset is a named bundle of throttling parameters.
type Preset struct {
	Key                   string  `json:"key"`
	DisplayName           string  `json:"displayName"`
	Method                Method  `json:"method"`
	Network               Network `json:"network"`
	CPUSlowdownMultiplier float64 `json:"cpuSlowdownMultiplier"`
}

var presets = []Preset{
	{
		Key:                   DefaultKey,
		DisplayName:           "No throttling",
		Method:                Direct,
		CPUSlowdownMultiplier: 1,
	},
	{
		Key:         "broadband",
		DisplayName: "Fast broadband (40ms RTT, 10 Mbps)",
		Method:      Simulated,
		Network: Network{
			RoundTripTimeMs: 40,
			ThroughputKbps:  10 * 1024,
		},
		CPUSlowdownMultiplier: 1,
	},
	{
		Key:         "mobile-slow4g",
		DisplayName: "Slow 4G mobile (150ms RTT, 1.6 Mbps, 4x CPU)",
		Method:      Simulated,
		Network: Network{
			RoundTripTimeMs:  150,
			ThroughputKbps:   1.6 * 1024,
			RequestLatencyMs: 150 * 3.75,
			DownloadKbps:     1.6 * 1024 * 0.9,
			UploadKbps:       750 * 0.9,
		},
		CPUSlowdownMultiplier: 4,
	},
	{
		Key:         "legacy-3g",
		DisplayName: "Regular 3G (300ms RTT, 700 Kbps, 4x CPU)",
		Method:      Simulated,
		Network: Network{
			RoundTripTimeMs:  300,
			ThroughputKbps:   700,
			RequestLatencyMs: 300 * 3.75,
			DownloadKbps:     700 * 0.9,
			UploadKbps:       700 * 0.9,
		},
		CPUSlowdownMultiplier: 4,
	},
}

// Catalog is a read-only lookup over the presets.
type Catalog struct {
	byKey map[string]Preset
	order []string
}

// NewCatalog builds the catalog of built-in presets.
func NewCatalog() *Catalog {
	c := &Catalog{byKey: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		c.byKey[p.Key] = p
		c.order = append(c.order, p.Key)
	}
	return c
}

// Resolve returns the preset for key. Unknown or empty keys resolve to the
// no-throttling preset.
func (c *Catalog) Resolve(key string) Preset {
	if p, ok := c.byKey[key]; ok {
		return p
	}
	logrus.WithField("preset", key).Debug("Unknown preset, falling back to default")
	return c.byKey[DefaultKey]
}

// List returns all presets in catalog order.
func (c *Catalog) List() []Preset {
	out := make([]Preset, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.byKey[k])
	}
	return out
}
