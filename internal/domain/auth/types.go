package auth

// Package auth contains domain-level types for the console account session.
// It is pure and free of framework/adapter concerns.

import "github.com/google/uuid"

// Well-known role names used for route gating.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Permission is a single app/action grant attached to a role.
type Permission struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Label  string    `json:"label"`
	App    string    `json:"app"`
	Action string    `json:"action"`
}

// Role is a named set of permissions assigned to a user.
type Role struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Label       string       `json:"label,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// User is the account returned by the backend for the current credential.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Roles     []Role    `json:"roles"`
	IsEnabled bool      `json:"is_enabled"`
	IsActive  bool      `json:"is_active"`
}

// RoleNames returns the names of the user's roles in backend order.
func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// HasAnyRole reports whether the user holds at least one of the given role names.
func (u User) HasAnyRole(names ...string) bool {
	for _, r := range u.Roles {
		for _, n := range names {
			if r.Name == n {
				return true
			}
		}
	}
	return false
}

// Credentials is the email/password pair submitted on login and registration.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Grant is what the backend hands back when it opens a session:
// the access token to persist and the account it belongs to.
type Grant struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// Phase is the lifecycle position of the client session.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseRestoring
	PhaseAuthenticated
	PhaseAnonymous
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseRestoring:
		return "restoring"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Session is the client-held belief about login status and identity.
// IsAuthenticated implies User != nil. While IsLoaded is false the state is
// unknown and must not be treated as logged out.
type Session struct {
	IsLoaded        bool  `json:"is_loaded"`
	IsAuthenticated bool  `json:"is_authenticated"`
	User            *User `json:"user"`
}

// Anonymous returns the loaded, logged-out session.
func Anonymous() Session { return Session{IsLoaded: true} }

// Authenticated returns a loaded session for u.
func Authenticated(u User) Session {
	return Session{IsLoaded: true, IsAuthenticated: true, User: &u}
}

// Phase derives the lifecycle phase from the flags. A session that is not
// loaded reports PhaseUninitialized; the store tracks PhaseRestoring itself.
func (s Session) Phase() Phase {
	switch {
	case !s.IsLoaded:
		return PhaseUninitialized
	case s.IsAuthenticated:
		return PhaseAuthenticated
	default:
		return PhaseAnonymous
	}
}
