package config

import (
	"fmt"
	"strings"
	"time"
)

// CredentialsBackend selects where the console persists its access token.
type CredentialsBackend string

const (
	// CredentialsBackendCookie keeps the token in an origin-scoped cookie jar,
	// optionally mirrored to a file.
	CredentialsBackendCookie CredentialsBackend = "cookie"
	// CredentialsBackendRedis keeps the token in Redis.
	CredentialsBackendRedis CredentialsBackend = "redis"
	// CredentialsBackendMemory keeps the token in process memory only.
	CredentialsBackendMemory CredentialsBackend = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for CredentialsBackend.
func (b *CredentialsBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "cookie", "redis", "memory":
		*b = CredentialsBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid CredentialsBackend: %q (valid options: cookie, redis, memory)", v)
	}
}

// CredentialsConfig controls credential persistence.
type CredentialsConfig struct {
	Backend CredentialsBackend `env:"BACKEND" envDefault:"cookie"`

	// CookieName is the cookie holding the token (cookie backend).
	CookieName string `env:"COOKIE_NAME" envDefault:"access_token"`

	// File mirrors the cookie to disk so a restart keeps the login (cookie backend).
	File string `env:"FILE"`

	// TTL bounds how long a stored token is kept; 0 keeps it until cleared.
	TTL time.Duration `env:"TTL" envDefault:"0s"`

	// RedisPrefix namespaces keys (redis backend).
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"console:credential:"`

	// ClientID identifies this console's credential (redis backend).
	ClientID string `env:"CLIENT_ID" envDefault:"console"`
}

// Sanitize applies guardrails to credential configuration.
func (c *CredentialsConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = CredentialsBackendCookie
	}
	if c.CookieName = strings.TrimSpace(c.CookieName); c.CookieName == "" {
		c.CookieName = "access_token"
	}
	c.File = strings.TrimSpace(c.File)
	if c.TTL < 0 {
		c.TTL = 0
	}
	if c.ClientID = strings.TrimSpace(c.ClientID); c.ClientID == "" {
		c.ClientID = "console"
	}
}
