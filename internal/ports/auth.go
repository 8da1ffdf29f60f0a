package ports

// Package ports defines interfaces (hexagonal ports) for account/session behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
)

// AccountAPI is the backend's account surface. Implementations return
// *errors.AppError values classified by cause (not found, invalid credential,
// disabled account, conflict, validation, unknown) rather than raw transport errors.
type AccountAPI interface {
	// Login exchanges credentials for a session grant.
	Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Grant, error)

	// Me returns the account the given access token belongs to.
	Me(ctx context.Context, token string) (domainauth.User, error)

	// Logout invalidates the access token server-side.
	Logout(ctx context.Context, token string) error

	// StartResetPassword asks the backend to mail a reset code to email.
	StartResetPassword(ctx context.Context, email string) error

	// ResetPassword sets a new password using a mailed code. The grant's
	// AccessToken is empty when the backend does not open a session.
	ResetPassword(ctx context.Context, code, password string) (domainauth.Grant, error)

	// Register creates an inactive account awaiting activation.
	Register(ctx context.Context, creds domainauth.Credentials) error

	// Activate confirms a registration code and opens a session.
	Activate(ctx context.Context, code string) (domainauth.Grant, error)
}

// CredentialStore persists the opaque access token between process runs.
// Token returns "" with a nil error when nothing is stored.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}
