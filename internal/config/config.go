package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shyim/lighthouse-bench/internal/lighthouse"
)

const (
	LauncherLocal  = "local"
	LauncherDocker = "docker"
)

// Config holds the measurement server's runtime configuration
type Config struct {
	Port      string
	AuthToken string
	LogLevel  string

	Launcher         string
	LighthouseBin    string
	ChromePath       string
	DockerImage      string
	MaxWaitForLoadMs int

	ReportArchive bool
	S3ServiceURL  string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3Region      string

	SentryDSN    string
	Environment  string
	OTLPEndpoint string

	CleanupInterval time.Duration
	CleanupMaxAge   time.Duration
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := Config{
		Port:          getenv("PORT"),
		AuthToken:     getenv("AUTH_TOKEN"),
		LogLevel:      getenv("LOG_LEVEL"),
		Launcher:      strings.ToLower(getenv("LAUNCHER")),
		LighthouseBin: getenv("LIGHTHOUSE_BIN"),
		ChromePath:    getenv("CHROME_PATH"),
		DockerImage:   getenv("DOCKER_IMAGE"),
		S3ServiceURL:  getenv("S3_SERVICE_URL"),
		S3AccessKey:   getenv("S3_ACCESS_KEY"),
		S3SecretKey:   getenv("S3_SECRET_KEY"),
		S3Bucket:      getenv("S3_BUCKET_NAME"),
		S3Region:      getenv("S3_REGION"),
		SentryDSN:     getenv("SENTRY_DSN"),
		Environment:   getenv("ENVIRONMENT"),
		OTLPEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var err error
	if cfg.MaxWaitForLoadMs, err = intEnv(getenv, "MAX_WAIT_FOR_LOAD_MS"); err != nil {
		return nil, err
	}
	if cfg.ReportArchive, err = boolEnv(getenv, "REPORT_ARCHIVE"); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval, err = durationEnv(getenv, "CLEANUP_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.CleanupMaxAge, err = durationEnv(getenv, "CLEANUP_MAX_AGE"); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Launcher == "" {
		cfg.Launcher = LauncherLocal
	}
	if cfg.LighthouseBin == "" {
		cfg.LighthouseBin = "lighthouse"
	}
	if cfg.DockerImage == "" {
		cfg.DockerImage = lighthouse.DefaultDockerImage
	}
	if cfg.MaxWaitForLoadMs == 0 {
		cfg.MaxWaitForLoadMs = lighthouse.DefaultMaxWaitForLoadMs
	}
	if cfg.S3Bucket == "" {
		cfg.S3Bucket = "lighthouse-reports"
	}
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.CleanupMaxAge == 0 {
		cfg.CleanupMaxAge = 5 * time.Minute
	}
}

func validate(cfg *Config) error {
	if cfg.Launcher != LauncherLocal && cfg.Launcher != LauncherDocker {
		return fmt.Errorf("LAUNCHER must be %q or %q, got %q", LauncherLocal, LauncherDocker, cfg.Launcher)
	}
	if cfg.MaxWaitForLoadMs < 1000 {
		return fmt.Errorf("MAX_WAIT_FOR_LOAD_MS must be >= 1000")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}
	if cfg.CleanupInterval < time.Second {
		return fmt.Errorf("CLEANUP_INTERVAL must be >= 1s")
	}
	return nil
}

func intEnv(getenv func(string) string, key string) (int, error) {
	v := getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(getenv func(string) string, key string) (bool, error) {
	v := getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return b, nil
}

func durationEnv(getenv func(string) string, key string) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return d, nil
}
