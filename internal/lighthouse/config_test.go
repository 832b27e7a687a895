package lighthouse_test

import (
	"testing"

	"github.com/shyim/lighthouse-bench/internal/lighthouse"
	"github.com/shyim/lighthouse-bench/internal/preset"
	"github.com/stretchr/testify/assert"
)

func TestNewConfigDirectPreset(t *testing.T) {
	p := preset.NewCatalog().Resolve(preset.DefaultKey)
	cfg := lighthouse.NewConfig(p, 0)

	assert.Equal(t, lighthouse.ThrottlingProvided, cfg.ThrottlingMethod)
	assert.Equal(t, lighthouse.Throttling{CPUSlowdownMultiplier: 1}, cfg.Throttling)
	assert.Equal(t, lighthouse.DefaultMaxWaitForLoadMs, cfg.MaxWaitForLoadMs)
	assert.Equal(t, []string{"performance"}, cfg.OnlyCategories)
	assert.Equal(t, "desktop", cfg.FormFactor)
	assert.Equal(t, 1350, cfg.ScreenEmulation.Width)
	assert.Equal(t, 940, cfg.ScreenEmulation.Height)
	assert.False(t, cfg.ScreenEmulation.Mobile)
}

func TestNewConfigSimulatedPreset(t *testing.T) {
	p := preset.NewCatalog().Resolve("mobile-slow4g")
	cfg := lighthouse.NewConfig(p, 30000)

	assert.Equal(t, lighthouse.ThrottlingSimulate, cfg.ThrottlingMethod)
	assert.Equal(t, float64(150), cfg.Throttling.RttMs)
	assert.Equal(t, float64(4), cfg.Throttling.CPUSlowdownMultiplier)
	assert.Equal(t, 30000, cfg.MaxWaitForLoadMs)

	// form factor does not follow the preset
	assert.Equal(t, "desktop", cfg.FormFactor)
	assert.Equal(t, 1350, cfg.ScreenEmulation.Width)
}

func TestConfigArgs(t *testing.T) {
	p := preset.NewCatalog().Resolve("legacy-3g")
	args := lighthouse.NewConfig(p, 0).Args("https://example.com/")

	assert.Equal(t, "https://example.com/", args[0])
	assert.Contains(t, args, "--output=json")
	assert.Contains(t, args, "--output-path=stdout")
	assert.Contains(t, args, "--only-categories=performance")
	assert.Contains(t, args, "--form-factor=desktop")
	assert.Contains(t, args, "--screenEmulation.mobile=false")
	assert.Contains(t, args, "--screenEmulation.width=1350")
	assert.Contains(t, args, "--screenEmulation.height=940")
	assert.Contains(t, args, "--screenEmulation.deviceScaleFactor=1")
	assert.Contains(t, args, "--throttling-method=simulate")
	assert.Contains(t, args, "--throttling.rttMs=300")
	assert.Contains(t, args, "--throttling.requestLatencyMs=1125")
	assert.Contains(t, args, "--throttling.downloadThroughputKbps=630")
	assert.Contains(t, args, "--throttling.cpuSlowdownMultiplier=4")
	assert.Contains(t, args, "--max-wait-for-load=45000")
}
