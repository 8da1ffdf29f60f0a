package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
	"github.com/serm-lab/admin-console/internal/service"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.String("request_id", reqID),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionSource exposes the current console session.
type SessionSource interface {
	State() domainauth.Session
}

// GuardOptions configures the route guard middleware.
type GuardOptions struct {
	// LoginPath receives anonymous visitors with a redirect_uri back to the route.
	LoginPath string
	// RetryAfter is advertised while the session is still being restored.
	RetryAfter time.Duration
}

func (o GuardOptions) loginPath() string {
	if o.LoginPath == "" {
		return "/auth/login"
	}
	return o.LoginPath
}

func (o GuardOptions) retryAfterSeconds() string {
	secs := int(o.RetryAfter / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// RequireSession admits any authenticated user.
func RequireSession(src SessionSource, opts GuardOptions) func(http.Handler) http.Handler {
	return RequireRoles(src, opts)
}

// RequireRoles admits authenticated users holding at least one of roles.
// While the session is still restoring it answers 503 with Retry-After and
// never redirects; anonymous visitors are sent to the login page; users
// lacking the role get 403.
func RequireRoles(src SessionSource, opts GuardOptions, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := src.State()
			switch service.Guard(sess, roles...) {
			case service.DecisionWait:
				w.Header().Set("Retry-After", opts.retryAfterSeconds())
				WriteError(w, ErrorParams{
					Code:    http.StatusServiceUnavailable,
					ErrCode: "session_restoring",
					Err:     errors.New("session is being restored"),
				})
			case service.DecisionRedirectLogin:
				http.Redirect(w, r, loginRedirect(opts.loginPath(), r), http.StatusSeeOther)
			case service.DecisionForbidden:
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     errors.New("insufficient permissions"),
				})
			default:
				ctx := SetSessionInContext(r.Context(), &sess)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// loginRedirect builds the login URL carrying the original path and query.
func loginRedirect(loginPath string, r *http.Request) string {
	q := url.Values{}
	q.Set("redirect_uri", r.URL.RequestURI())
	return loginPath + "?" + q.Encode()
}
