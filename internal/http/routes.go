package httpx

import (
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Session SessionService
	// LoginPath receives anonymous visitors of guarded routes.
	LoginPath string
	// RestoreRetryAfter is advertised while the session is restoring.
	RestoreRetryAfter time.Duration
	Logger            *slog.Logger // optional
}

// NewRouter creates and configures the console HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", healthHandler(services.Session))
	mux.Handle("HEAD /healthz", healthHandler(services.Session))
	mux.HandleFunc("GET /api/pagination", paginationHandler)

	if services.Session != nil {
		registerSessionRoutes(mux, &SessionHandlers{Svc: services.Session, Logger: services.Logger})

		guard := GuardOptions{LoginPath: services.LoginPath, RetryAfter: services.RestoreRetryAfter}
		requireAdmin := RequireRoles(services.Session, guard, domainauth.RoleAdmin)
		mux.Handle("GET /api/admin/ping", requireAdmin(http.HandlerFunc(adminPingHandler)))
	}

	return mux
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers) {
	mux.HandleFunc("GET /api/session", h.Get)
	mux.HandleFunc("POST /api/session/login", h.Login)
	mux.HandleFunc("POST /api/session/logout", h.Logout)
	mux.HandleFunc("POST /api/session/start-reset-password", h.StartResetPassword)
	mux.HandleFunc("POST /api/session/reset-password", h.ResetPassword)
	mux.HandleFunc("POST /api/session/register", h.Register)
	mux.HandleFunc("POST /api/session/activate", h.Activate)
}
