// Package lighthouse adapts the lighthouse CLI and the browser it attaches to.
package lighthouse

import (
	"fmt"
	"strconv"

	"github.com/shyim/lighthouse-bench/internal/preset"
)

const (
	ThrottlingProvided = "provided"
	ThrottlingSimulate = "simulate"

	// DefaultMaxWaitForLoadMs matches the auditor's own default.
	DefaultMaxWaitForLoadMs = 45000
)

type ScreenEmulation struct {
	Mobile            bool
	Width             int
	Height            int
	DeviceScaleFactor float64
	Disabled          bool
}

type Throttling struct {
	RttMs                  float64
	ThroughputKbps         float64
	RequestLatencyMs       float64
	DownloadThroughputKbps float64
	UploadThroughputKbps   float64
	CPUSlowdownMultiplier  float64
}

// Config is a single audit invocation's settings.
type Config struct {
	OnlyCategories   []string
	FormFactor       string
	ScreenEmulation  ScreenEmulation
	ThrottlingMethod string
	Throttling       Throttling
	MaxWaitForLoadMs int
}

// desktopScreen is fixed so results stay comparable across presets.
var desktopScreen = ScreenEmulation{
	Mobile:            false,
	Width:             1350,
	Height:            940,
	DeviceScaleFactor: 1,
	Disabled:          false,
}

// NewConfig translates a preset into audit settings.
func NewConfig(p preset.Preset, maxWaitForLoadMs int) Config {
	if maxWaitForLoadMs <= 0 {
		maxWaitForLoadMs = DefaultMaxWaitForLoadMs
	}

	cfg := Config{
		OnlyCategories:   []string{"performance"},
		FormFactor:       "desktop",
		ScreenEmulation:  desktopScreen,
		ThrottlingMethod: ThrottlingProvided,
		Throttling:       Throttling{CPUSlowdownMultiplier: 1},
		MaxWaitForLoadMs: maxWaitForLoadMs,
	}

	if p.Method == preset.Simulated {
		cfg.ThrottlingMethod = ThrottlingSimulate
		cfg.Throttling = Throttling{
			RttMs:                  p.Network.RoundTripTimeMs,
			ThroughputKbps:         p.Network.ThroughputKbps,
			RequestLatencyMs:       p.Network.RequestLatencyMs,
			DownloadThroughputKbps: p.Network.DownloadKbps,
			UploadThroughputKbps:   p.Network.UploadKbps,
			CPUSlowdownMultiplier:  p.CPUSlowdownMultiplier,
		}
	}

	return cfg
}

// Args renders the CLI arguments for auditing url. The report is written to
// stdout as JSON.
func (c Config) Args(url string) []string {
	args := []string{
		url,
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--form-factor=" + c.FormFactor,
		"--screenEmulation.mobile=" + strconv.FormatBool(c.ScreenEmulation.Mobile),
		"--screenEmulation.width=" + strconv.Itoa(c.ScreenEmulation.Width),
		"--screenEmulation.height=" + strconv.Itoa(c.ScreenEmulation.Height),
		"--screenEmulation.deviceScaleFactor=" + formatFloat(c.ScreenEmulation.DeviceScaleFactor),
		"--screenEmulation.disabled=" + strconv.FormatBool(c.ScreenEmulation.Disabled),
		"--throttling-method=" + c.ThrottlingMethod,
		"--throttling.rttMs=" + formatFloat(c.Throttling.RttMs),
		"--throttling.throughputKbps=" + formatFloat(c.Throttling.ThroughputKbps),
		"--throttling.requestLatencyMs=" + formatFloat(c.Throttling.RequestLatencyMs),
		"--throttling.downloadThroughputKbps=" + formatFloat(c.Throttling.DownloadThroughputKbps),
		"--throttling.uploadThroughputKbps=" + formatFloat(c.Throttling.UploadThroughputKbps),
		"--throttling.cpuSlowdownMultiplier=" + formatFloat(c.Throttling.CPUSlowdownMultiplier),
		fmt.Sprintf("--max-wait-for-load=%d", c.MaxWaitForLoadMs),
	}
	for _, cat := range c.OnlyCategories {
		args = append(args, "--only-categories="+cat)
	}
	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
