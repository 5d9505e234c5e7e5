package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Quiz      QuizConfig      `yaml:"quiz"`
	Browser   BrowserConfig   `yaml:"browser"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// QuizConfig holds the credentials the webhook checks and submits.
type QuizConfig struct {
	// Email is the identity sent with every submission. Requests carry their
	// own email; this is only used by tooling that submits on its own.
	Email string `yaml:"email"`

	// Secret must match the secret on every incoming webhook call.
	Secret string `yaml:"secret"`
}

// BrowserConfig controls the render backends.
type BrowserConfig struct {
	// Backends is the ordered fallback list of renderers.
	// Known names: "rod", "playwright", "static". default: ["rod", "static"]
	Backends []string `yaml:"backends"`

	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"` // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"bin"`

	// Proxy is the proxy URL for page loads and downloads.
	Proxy string `yaml:"proxy"`

	// MaxSessions is the number of pages that may be open at once.
	MaxSessions int `yaml:"max_sessions"` // default: 4

	// BlockedResourceTypes lists resource types never loaded by the browser.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string `yaml:"blocked_resource_types"`

	// Stealth injects the stealth.js evasions before navigation.
	Stealth bool `yaml:"stealth"` // default: true
}

// TimeoutConfig bounds each stage of a visit.
type TimeoutConfig struct {
	Navigation time.Duration `yaml:"navigation"` // default: 120s
	Quiescence time.Duration `yaml:"quiescence"` // default: 5s
	Download   time.Duration `yaml:"download"`   // default: 60s
	Submit     time.Duration `yaml:"submit"`     // default: 60s
}

// FetchConfig controls linked-document downloads.
type FetchConfig struct {
	MaxBodyBytes int64  `yaml:"max_body_bytes"` // default: 25 MiB
	UserAgent    string `yaml:"user_agent"`
}

// AuthConfig controls API key authentication on the operator endpoints.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool `yaml:"enabled"` // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig controls per-caller rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per caller.
	RequestsPerSecond float64 `yaml:"rps"` // default: 2

	// Burst is the maximum burst size per caller.
	Burst int `yaml:"burst"` // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "release"},
		Browser: BrowserConfig{
			Backends:             []string{"rod", "static"},
			Headless:             true,
			MaxSessions:          4,
			BlockedResourceTypes: []string{"Image", "Font", "Media"},
			Stealth:              true,
		},
		Timeouts: TimeoutConfig{
			Navigation: 120 * time.Second,
			Quiescence: 5 * time.Second,
			Download:   60 * time.Second,
			Submit:     60 * time.Second,
		},
		Fetch:     FetchConfig{MaxBodyBytes: 25 << 20},
		Auth:      AuthConfig{Enabled: true},
		RateLimit: RateLimitConfig{RequestsPerSecond: 2, Burst: 5},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration in three layers: built-in defaults, then the
// YAML file named by QUIZHOOK_CONFIG (if set), then QUIZHOOK_* environment
// variables.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("QUIZHOOK_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = envOr("QUIZHOOK_HOST", c.Server.Host)
	c.Server.Port = envIntOr("QUIZHOOK_PORT", c.Server.Port)
	c.Server.Mode = envOr("QUIZHOOK_MODE", c.Server.Mode)

	c.Quiz.Email = envOr("QUIZHOOK_EMAIL", c.Quiz.Email)
	c.Quiz.Secret = envOr("QUIZHOOK_SECRET", c.Quiz.Secret)

	c.Browser.Backends = envSliceOr("QUIZHOOK_BACKENDS", c.Browser.Backends)
	c.Browser.Headless = envBoolOr("QUIZHOOK_HEADLESS", c.Browser.Headless)
	c.Browser.NoSandbox = envBoolOr("QUIZHOOK_NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.BrowserBin = envOr("QUIZHOOK_BROWSER_BIN", c.Browser.BrowserBin)
	c.Browser.Proxy = envOr("QUIZHOOK_PROXY", c.Browser.Proxy)
	c.Browser.MaxSessions = envIntOr("QUIZHOOK_MAX_SESSIONS", c.Browser.MaxSessions)
	c.Browser.BlockedResourceTypes = envSliceOr("QUIZHOOK_BLOCKED_RESOURCES", c.Browser.BlockedResourceTypes)
	c.Browser.Stealth = envBoolOr("QUIZHOOK_STEALTH", c.Browser.Stealth)

	c.Timeouts.Navigation = envDurationOr("QUIZHOOK_NAV_TIMEOUT", c.Timeouts.Navigation)
	c.Timeouts.Quiescence = envDurationOr("QUIZHOOK_QUIESCENCE_TIMEOUT", c.Timeouts.Quiescence)
	c.Timeouts.Download = envDurationOr("QUIZHOOK_DOWNLOAD_TIMEOUT", c.Timeouts.Download)
	c.Timeouts.Submit = envDurationOr("QUIZHOOK_SUBMIT_TIMEOUT", c.Timeouts.Submit)

	c.Fetch.MaxBodyBytes = int64(envIntOr("QUIZHOOK_MAX_BODY_BYTES", int(c.Fetch.MaxBodyBytes)))
	c.Fetch.UserAgent = envOr("QUIZHOOK_USER_AGENT", c.Fetch.UserAgent)

	c.Auth.Enabled = envBoolOr("QUIZHOOK_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.APIKeys = envSliceOr("QUIZHOOK_API_KEYS", c.Auth.APIKeys)

	c.RateLimit.RequestsPerSecond = envFloatOr("QUIZHOOK_RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("QUIZHOOK_RATE_BURST", c.RateLimit.Burst)

	c.Log.Level = envOr("QUIZHOOK_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("QUIZHOOK_LOG_FORMAT", c.Log.Format)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
