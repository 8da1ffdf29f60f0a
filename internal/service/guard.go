package service

import domainauth "github.com/serm-lab/admin-console/internal/domain/auth"

// Decision is the outcome of gating a protected route.
type Decision int

const (
	// DecisionWait means the session is still being restored; render nothing yet.
	DecisionWait Decision = iota
	// DecisionRedirectLogin means the visitor is known to be logged out.
	DecisionRedirectLogin
	// DecisionForbidden means the user is logged in but lacks the required role.
	DecisionForbidden
	// DecisionAllow means the route may render.
	DecisionAllow
)

func (d Decision) String() string {
	switch d {
	case DecisionWait:
		return "wait"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionForbidden:
		return "forbidden"
	case DecisionAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Guard decides whether a protected route may render for sess. With no
// requiredRoles any authenticated user is allowed; otherwise the user needs
// at least one of them. An unloaded session never redirects.
func Guard(sess domainauth.Session, requiredRoles ...string) Decision {
	switch {
	case !sess.IsLoaded:
		return DecisionWait
	case !sess.IsAuthenticated || sess.User == nil:
		return DecisionRedirectLogin
	case len(requiredRoles) > 0 && !sess.User.HasAnyRole(requiredRoles...):
		return DecisionForbidden
	default:
		return DecisionAllow
	}
}
