package config

import (
	"strings"
	"time"
)

const (
	defaultAPITimeout    = 10 * time.Second
	defaultAPIDetailPath = "detail"
)

// APIConfig contains account backend client configuration.
type APIConfig struct {
	// BaseURL is the REST backend root (e.g., "https://serm.example.com/api").
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`

	// Timeout bounds every backend request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`

	// ErrorDetailPath is a JMESPath expression locating the message in error bodies.
	ErrorDetailPath string `env:"ERROR_DETAIL_PATH" envDefault:"detail"`
}

// Sanitize applies guardrails to backend client configuration.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultAPITimeout
	}
	if c.ErrorDetailPath = strings.TrimSpace(c.ErrorDetailPath); c.ErrorDetailPath == "" {
		c.ErrorDetailPath = defaultAPIDetailPath
	}
}
