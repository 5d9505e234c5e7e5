package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("QUIZHOOK_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeouts.Navigation != 120*time.Second || cfg.Timeouts.Quiescence != 5*time.Second {
		t.Errorf("timeouts = %+v", cfg.Timeouts)
	}
	if !slices.Equal(cfg.Browser.Backends, []string{"rod", "static"}) {
		t.Errorf("backends = %v", cfg.Browser.Backends)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quizhook.yaml")
	yml := `
server:
  port: 9090
quiz:
  secret: from-file
timeouts:
  quiescence: 2s
browser:
  backends: [playwright]
  max_sessions: 8
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUIZHOOK_CONFIG", path)
	t.Setenv("QUIZHOOK_SECRET", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090 from file", cfg.Server.Port)
	}
	if cfg.Quiz.Secret != "from-env" {
		t.Errorf("secret = %q, env should win", cfg.Quiz.Secret)
	}
	if cfg.Timeouts.Quiescence != 2*time.Second {
		t.Errorf("quiescence = %v", cfg.Timeouts.Quiescence)
	}
	if cfg.Timeouts.Navigation != 120*time.Second {
		t.Errorf("navigation = %v, default should survive", cfg.Timeouts.Navigation)
	}
	if cfg.Browser.MaxSessions != 8 || cfg.Browser.Backends[0] != "playwright" {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if !cfg.Browser.Headless {
		t.Error("headless default lost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("QUIZHOOK_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestEnvHelpers_IgnoreGarbage(t *testing.T) {
	t.Setenv("QUIZHOOK_TEST_INT", "abc")
	if got := envIntOr("QUIZHOOK_TEST_INT", 7); got != 7 {
		t.Errorf("envIntOr = %d", got)
	}
	t.Setenv("QUIZHOOK_TEST_SLICE", " a, ,b ")
	if got := envSliceOr("QUIZHOOK_TEST_SLICE", nil); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("envSliceOr = %v", got)
	}
}
