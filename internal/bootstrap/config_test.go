package bootstrap

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/serm-lab/admin-console/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", false)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record leaked at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("expected JSON warn record, got %s", out)
	}

	buf.Reset()
	NewLogger(&buf, "debug", true).Debug("dev mode")
	if !strings.Contains(buf.String(), "msg=\"dev mode\"") {
		t.Fatalf("expected text record in dev mode, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("CREDENTIALS_BACKEND", "redis")
	t.Setenv("LOG_LEVEL", "LOUD")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Fatalf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.Credentials.Backend != config.CredentialsBackendRedis || !cfg.UsesRedis() {
		t.Fatalf("backend = %q, want redis", cfg.Credentials.Backend)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CREDENTIALS_BACKEND", "floppy")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected parse error for unknown backend")
	}
}
