package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// LoginPath is where anonymous visitors of protected routes are sent.
	LoginPath string `env:"HTTP_LOGIN_PATH" envDefault:"/auth/login"`

	// RestoreRetryAfter is advertised in Retry-After while the session is still restoring.
	RestoreRetryAfter time.Duration `env:"HTTP_RESTORE_RETRY_AFTER" envDefault:"1s"`

	// ReadHeaderTimeout bounds how long the server waits for request headers.
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr = strings.TrimSpace(h.Addr); h.Addr == "" {
		h.Addr = ":8080"
	}
	h.LoginPath = strings.TrimSpace(h.LoginPath)
	if h.LoginPath == "" || !strings.HasPrefix(h.LoginPath, "/") {
		h.LoginPath = "/auth/login"
	}
	if h.RestoreRetryAfter < time.Second {
		h.RestoreRetryAfter = time.Second
	}
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}
