package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
)

// SessionService is the console session as seen by HTTP handlers.
type SessionService interface {
	SessionSource
	Phase() domainauth.Phase
	Snapshot() (domainauth.Phase, domainauth.Session)
	Login(ctx context.Context, creds domainauth.Credentials) (domainauth.User, error)
	Logout(ctx context.Context)
	StartResetPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, password string) (domainauth.User, error)
	Register(ctx context.Context, creds domainauth.Credentials) error
	Activate(ctx context.Context, code string) (domainauth.User, error)
}

// SessionHandlers serves the console session over JSON.
type SessionHandlers struct {
	Svc    SessionService
	Logger *slog.Logger
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type sessionResponse struct {
	Phase string `json:"phase"`
	domainauth.Session
}

type userResponse struct {
	User domainauth.User `json:"user"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type resetPasswordRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

// Get returns the current session.
// GET /api/session.
func (h *SessionHandlers) Get(w http.ResponseWriter, _ *http.Request) {
	phase, sess := h.Svc.Snapshot()
	WriteJSON(w, http.StatusOK, sessionResponse{Phase: phase.String(), Session: sess})
}

// Login submits credentials.
// POST /api/session/login.
func (h *SessionHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domainauth.Credentials
	if !DecodeJSON(w, r, &req) {
		return
	}
	user, err := h.Svc.Login(r.Context(), req)
	if err != nil {
		h.logger().InfoContext(r.Context(), "console login rejected", "error", err)
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, userResponse{User: user})
}

// Logout ends the session. It always succeeds.
// POST /api/session/logout.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Svc.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// StartResetPassword mails a reset code.
// POST /api/session/start-reset-password.
func (h *SessionHandlers) StartResetPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.StartResetPassword(r.Context(), req.Email); err != nil {
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ResetPassword sets a new password with a mailed code.
// POST /api/session/reset-password.
func (h *SessionHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	user, err := h.Svc.ResetPassword(r.Context(), req.Code, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, userResponse{User: user})
}

// Register creates an account awaiting activation.
// POST /api/session/register.
func (h *SessionHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domainauth.Credentials
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.Register(r.Context(), req); err != nil {
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Activate confirms a registration code.
// POST /api/session/activate.
func (h *SessionHandlers) Activate(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	user, err := h.Svc.Activate(r.Context(), req.Code)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, userResponse{User: user})
}
