package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Default()
	if cfg.Listen != want.Listen || cfg.Upstream.BaseURL != want.Upstream.BaseURL {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Upstream.Timeout != 0 {
		t.Fatalf("expected no upstream timeout by default, got %v", cfg.Upstream.Timeout)
	}
	if cfg.Breaker.MaxFailures != 5 || cfg.Breaker.OpenTimeout != 30*time.Second {
		t.Fatalf("unexpected breaker defaults: %+v", cfg.Breaker)
	}
	if cfg.Redis.URL != "" || cfg.Redis.TTL != 30*time.Second || cfg.Dedupe.TTL != 10*time.Minute {
		t.Fatalf("unexpected redis defaults: %+v %+v", cfg.Redis, cfg.Dedupe)
	}
	if cfg.Rate.Limit != 0 || cfg.Rate.Burst != 20 {
		t.Fatalf("unexpected rate defaults: %+v", cfg.Rate)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" || cfg.TimeZone != "Local" {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TODO_WEB_UPSTREAM_BASE_URL", "https://todos.example.com")
	t.Setenv("TODO_WEB_UPSTREAM_TIMEOUT", "5s")
	t.Setenv("TODO_WEB_BREAKER_MAX_FAILURES", "9")
	t.Setenv("TODO_WEB_RATE_LIMIT", "2.5")
	t.Setenv("TODO_WEB_LOG_FORMAT", "json")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Upstream.BaseURL != "https://todos.example.com" || cfg.Upstream.Timeout != 5*time.Second {
		t.Fatalf("unexpected upstream: %+v", cfg.Upstream)
	}
	if cfg.Breaker.MaxFailures != 9 || cfg.Rate.Limit != 2.5 || cfg.Log.Format != "json" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeFile(t, "todo-web.yaml", strings.Join([]string{
		"listen: \":9090\"",
		"upstream:",
		"  base_url: http://api.internal:3000",
		"  token: abc",
		"redis:",
		"  url: redis://localhost:6379/0",
		"  ttl: 1m",
		"time_zone: UTC",
	}, "\n"))

	cfg, err := Load(Options{ConfigFile: path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9090" || cfg.Upstream.Token != "abc" || cfg.Redis.TTL != time.Minute {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC, got %v (%v)", loc, err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	const key = "TODO_WEB_LISTEN"
	if _, ok := os.LookupEnv(key); ok {
		t.Skipf("%s already set", key)
	}
	t.Cleanup(func() { _ = os.Unsetenv(key) })
	path := writeFile(t, ".env", key+"=:7070\n")

	cfg, err := Load(Options{EnvFile: path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":7070" {
		t.Fatalf("expected listen from .env, got %q", cfg.Listen)
	}
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	if _, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), ".env")}); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty base url", func(c *Config) { c.Upstream.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.Upstream.BaseURL = "/api" }},
		{"bad scheme", func(c *Config) { c.Upstream.BaseURL = "ftp://host" }},
		{"negative timeout", func(c *Config) { c.Upstream.Timeout = -time.Second }},
		{"negative ttl", func(c *Config) { c.Redis.TTL = -time.Second }},
		{"negative rate", func(c *Config) { c.Rate.Limit = -1 }},
		{"bad zone", func(c *Config) { c.TimeZone = "Mars/Olympus" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
