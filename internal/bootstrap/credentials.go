package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/serm-lab/admin-console/config"
	"github.com/serm-lab/admin-console/internal/adapters/cookiestore"
	redisadapter "github.com/serm-lab/admin-console/internal/adapters/redis"
	"github.com/serm-lab/admin-console/internal/ports"
)

// CredentialStoreConfig contains dependencies for building the credential store.
type CredentialStoreConfig struct {
	Credentials config.CredentialsConfig
	// Origin is the backend base URL; the cookie backend scopes its cookie to it.
	Origin string
	// Redis is required by the redis backend only.
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// CredentialBundle is the selected credential store plus the cookie jar to
// attach to the backend HTTP client, which is nil for non-cookie backends.
type CredentialBundle struct {
	Store ports.CredentialStore
	Jar   http.CookieJar
}

// BuildCredentialStore selects the credential persistence backend.
func BuildCredentialStore(cfg CredentialStoreConfig) (CredentialBundle, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Credentials.Backend {
	case config.CredentialsBackendRedis:
		if cfg.Redis == nil {
			return CredentialBundle{}, errors.New("redis credential backend requires a redis client")
		}
		store, err := redisadapter.NewCredentialStore(cfg.Redis, redisadapter.CredentialStoreOptions{
			Prefix:   cfg.Credentials.RedisPrefix,
			ClientID: cfg.Credentials.ClientID,
			TTL:      cfg.Credentials.TTL,
		})
		if err != nil {
			return CredentialBundle{}, fmt.Errorf("redis credential store: %w", err)
		}
		logger.Info("credential store selected", "backend", "redis", "client_id", cfg.Credentials.ClientID)
		return CredentialBundle{Store: store}, nil

	case config.CredentialsBackendMemory:
		logger.Warn("credential store selected", "backend", "memory", "note", "login does not survive restarts")
		return CredentialBundle{Store: &memoryCredentialStore{}}, nil

	case config.CredentialsBackendCookie, "":
		store, err := cookiestore.New(cookiestore.Options{
			Origin:     cfg.Origin,
			CookieName: cfg.Credentials.CookieName,
			TTL:        cfg.Credentials.TTL,
			File:       cfg.Credentials.File,
		})
		if err != nil {
			return CredentialBundle{}, fmt.Errorf("cookie credential store: %w", err)
		}
		logger.Info("credential store selected", "backend", "cookie", "file", cfg.Credentials.File)
		return CredentialBundle{Store: store, Jar: store.Jar()}, nil

	default:
		return CredentialBundle{}, fmt.Errorf("unsupported credential backend %q", cfg.Credentials.Backend)
	}
}

// memoryCredentialStore keeps the token in process memory.
type memoryCredentialStore struct {
	mu    sync.Mutex
	token string
}

func (m *memoryCredentialStore) Token(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memoryCredentialStore) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memoryCredentialStore) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
