package httpx

import (
	"net/http"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
)

type healthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
}

// healthHandler reports liveness plus the session phase, so an operator can
// tell a console still restoring its session from one that is ready.
func healthHandler(src SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phase := domainauth.PhaseUninitialized
		if src != nil {
			phase = src.Phase()
		}
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			return
		}
		WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Session: phase.String()})
	}
}

type pingResponse struct {
	Status string   `json:"status"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// adminPingHandler answers on the admin-only route with the admitted user.
// GET /api/admin/ping.
func adminPingHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	WriteJSON(w, http.StatusOK, pingResponse{Status: "ok", Email: user.Email, Roles: user.RoleNames()})
}
