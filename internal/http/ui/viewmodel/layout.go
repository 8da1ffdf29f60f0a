package viewmodel

import domainauth "github.com/serm-lab/admin-console/internal/domain/auth"

// User represents the authenticated user context exposed to the console shell.
type User struct {
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	IsActive bool     `json:"is_active"`
}

// Layout captures shared chrome metadata (titles, navigation state, auth flags).
type Layout struct {
	Title           string `json:"title"`
	IsLoaded        bool   `json:"is_loaded"`
	IsAuthenticated bool   `json:"is_authenticated"`
	// CanManageAccess shows the users/roles/permissions admin section.
	CanManageAccess bool  `json:"can_manage_access"`
	User            *User `json:"user,omitempty"`
}

// NewLayout derives the shell navigation state from a session snapshot.
func NewLayout(title string, sess domainauth.Session) Layout {
	layout := Layout{
		Title:           title,
		IsLoaded:        sess.IsLoaded,
		IsAuthenticated: sess.IsAuthenticated && sess.User != nil,
	}
	if !layout.IsAuthenticated {
		return layout
	}
	layout.User = &User{
		Email:    sess.User.Email,
		Roles:    sess.User.RoleNames(),
		IsActive: sess.User.IsActive,
	}
	layout.CanManageAccess = sess.User.HasAnyRole(domainauth.RoleAdmin)
	return layout
}
