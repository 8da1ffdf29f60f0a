package bootstrap

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/serm-lab/admin-console/config"
	"github.com/serm-lab/admin-console/internal/adapters/cookiestore"
	redisadapter "github.com/serm-lab/admin-console/internal/adapters/redis"
	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testConfig(t *testing.T, backend config.CredentialsBackend, baseURL string) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{
		API:         config.APIConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		Credentials: config.CredentialsConfig{Backend: backend},
		HTTP:        config.HTTPConfig{Addr: "127.0.0.1:0"},
	}
	cfg.Sanitize()
	return cfg
}

func TestBuildCredentialStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	t.Run("memory", func(t *testing.T) {
		bundle, err := BuildCredentialStore(CredentialStoreConfig{
			Credentials: config.CredentialsConfig{Backend: config.CredentialsBackendMemory},
			Logger:      quietLogger(),
		})
		if err != nil {
			t.Fatalf("BuildCredentialStore: %v", err)
		}
		if _, ok := bundle.Store.(*memoryCredentialStore); !ok {
			t.Fatalf("store = %T, want *memoryCredentialStore", bundle.Store)
		}
		if bundle.Jar != nil {
			t.Fatal("memory backend must not expose a cookie jar")
		}
	})

	t.Run("redis", func(t *testing.T) {
		bundle, err := BuildCredentialStore(CredentialStoreConfig{
			Credentials: config.CredentialsConfig{Backend: config.CredentialsBackendRedis, ClientID: "ops"},
			Redis:       client,
			Logger:      quietLogger(),
		})
		if err != nil {
			t.Fatalf("BuildCredentialStore: %v", err)
		}
		store, ok := bundle.Store.(*redisadapter.CredentialStore)
		if !ok {
			t.Fatalf("store = %T, want *redis.CredentialStore", bundle.Store)
		}
		if err := store.SetToken(context.Background(), "tok"); err != nil {
			t.Fatalf("SetToken: %v", err)
		}
		if got, _ := mr.Get(redisadapter.DefaultPrefix + "ops"); got != "tok" {
			t.Fatalf("redis value = %q, want tok", got)
		}
	})

	t.Run("redis without client", func(t *testing.T) {
		_, err := BuildCredentialStore(CredentialStoreConfig{
			Credentials: config.CredentialsConfig{Backend: config.CredentialsBackendRedis, ClientID: "ops"},
			Logger:      quietLogger(),
		})
		if err == nil {
			t.Fatal("expected error without redis client")
		}
	})

	t.Run("cookie", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "credential")
		bundle, err := BuildCredentialStore(CredentialStoreConfig{
			Credentials: config.CredentialsConfig{Backend: config.CredentialsBackendCookie, File: file},
			Origin:      "http://localhost:8000",
			Logger:      quietLogger(),
		})
		if err != nil {
			t.Fatalf("BuildCredentialStore: %v", err)
		}
		if _, ok := bundle.Store.(*cookiestore.Store); !ok {
			t.Fatalf("store = %T, want *cookiestore.Store", bundle.Store)
		}
		if bundle.Jar == nil {
			t.Fatal("cookie backend must expose its jar")
		}
		if err := bundle.Store.SetToken(context.Background(), "tok"); err != nil {
			t.Fatalf("SetToken: %v", err)
		}
		if _, err := os.Stat(file); err != nil {
			t.Fatalf("credential file not written: %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := BuildCredentialStore(CredentialStoreConfig{
			Credentials: config.CredentialsConfig{Backend: "floppy"},
			Logger:      quietLogger(),
		})
		if err == nil {
			t.Fatal("expected error for unknown backend")
		}
	})
}

func TestMemoryCredentialStore(t *testing.T) {
	ctx := context.Background()
	store := &memoryCredentialStore{}
	if err := store.SetToken(ctx, "tok"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if got, _ := store.Token(ctx); got != "tok" {
		t.Fatalf("Token = %q, want tok", got)
	}
	if err := store.ClearToken(ctx); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if got, _ := store.Token(ctx); got != "" {
		t.Fatalf("Token after clear = %q, want empty", got)
	}
}

func TestNewServices(t *testing.T) {
	if _, err := NewServices(nil); err == nil {
		t.Fatal("expected error for nil deps")
	}

	cfg := testConfig(t, config.CredentialsBackendMemory, "ftp://backend")
	if _, err := NewServices(&ServiceDeps{Config: cfg, Logger: quietLogger()}); err == nil {
		t.Fatal("expected error for non-http base url")
	}

	cfg = testConfig(t, config.CredentialsBackendMemory, "http://localhost:8000")
	services, err := NewServices(&ServiceDeps{Config: cfg, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	if services.Session == nil || services.API == nil || services.Credentials == nil {
		t.Fatalf("incomplete container: %+v", services)
	}
	if services.Observability.MetricsSink != nil {
		t.Fatal("metrics are disabled by default")
	}
	if got := services.Session.Phase(); got != domainauth.PhaseUninitialized {
		t.Fatalf("phase = %s, want uninitialized", got)
	}
}

func TestBuildObservability(t *testing.T) {
	obs := buildObservability(quietLogger(), config.ObservabilityConfig{
		Metrics: config.ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "127.0.0.1:8125", Prefix: "console"},
	})
	if obs.MetricsSink == nil {
		t.Fatal("expected metrics sink when enabled")
	}
	if err := obs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	obs = buildObservability(nil, config.ObservabilityConfig{})
	if obs.MetricsSink != nil {
		t.Fatal("expected no sink when disabled")
	}
	if err := obs.Close(); err != nil {
		t.Fatalf("Close without sink: %v", err)
	}
}

func TestSessionRestoreService(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/account/me" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(domainauth.User{Email: "admin@example.com", IsEnabled: true, IsActive: true})
	}))
	t.Cleanup(backend.Close)

	cfg := testConfig(t, config.CredentialsBackendMemory, backend.URL)
	services, err := NewServices(&ServiceDeps{Config: cfg, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	if err := services.Credentials.SetToken(context.Background(), "persisted"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	svc := newSessionRestoreService(services.Session, quietLogger())
	if err := svc.start(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	state := services.Session.State()
	if !state.IsAuthenticated || state.User.Email != "admin@example.com" {
		t.Fatalf("state = %+v, want authenticated admin", state)
	}
}

func TestRunServicesWithShutdown(t *testing.T) {
	if err := RunServicesWithShutdown(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg := testConfig(t, config.CredentialsBackendMemory, "http://localhost:8000")
	services, err := NewServices(&ServiceDeps{Config: cfg, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}

	signals := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- RunServicesWithShutdown(&ServiceOrchestrationConfig{
			Config:   cfg,
			Services: services,
			Logger:   quietLogger(),
			Signals:  signals,
		})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !services.Session.State().IsLoaded {
		if time.Now().After(deadline) {
			t.Fatal("session never loaded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	signals <- syscall.SIGTERM
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunServicesWithShutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestBuildHTTPHandler(t *testing.T) {
	cfg := testConfig(t, config.CredentialsBackendMemory, "http://localhost:8000")
	services, err := NewServices(&ServiceDeps{Config: cfg, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	handler := buildHTTPHandler(httpHandlerConfig{
		Logger:   quietLogger(),
		Services: routerServices(cfg, services, quietLogger()),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 before the session is restored", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestShutdownHTTPServerNil(t *testing.T) {
	if err := ShutdownHTTPServer(ShutdownConfig{}); err != nil {
		t.Fatalf("ShutdownHTTPServer(nil server) = %v", err)
	}
}
