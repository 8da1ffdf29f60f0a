package auth

// Package auth contains simple hand-written test doubles for account ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
	apperrors "github.com/serm-lab/admin-console/internal/errors"
	"github.com/serm-lab/admin-console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AccountAPI      = (*FakeAccountAPI)(nil)
	_ ports.CredentialStore = (*MemoryCredentialStore)(nil)
)

// FakeAccount is a backend account known to FakeAccountAPI.
type FakeAccount struct {
	Password string
	Disabled bool
	User     domainauth.User
}

// FakeAccountAPI simulates the account backend in memory. Any *Func field
// overrides the built-in behavior for that method. Safe for concurrent use.
type FakeAccountAPI struct {
	LoginFunc              func(ctx context.Context, creds domainauth.Credentials) (domainauth.Grant, error)
	MeFunc                 func(ctx context.Context, token string) (domainauth.User, error)
	LogoutFunc             func(ctx context.Context, token string) error
	StartResetPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc      func(ctx context.Context, code, password string) (domainauth.Grant, error)
	RegisterFunc           func(ctx context.Context, creds domainauth.Credentials) error
	ActivateFunc           func(ctx context.Context, code string) (domainauth.Grant, error)

	mu       sync.Mutex
	accounts map[string]*FakeAccount
	tokens   map[string]string
	codes    map[string]string
	calls    map[string]int
	seq      int
}

// NewFakeAccountAPI creates a FakeAccountAPI with no accounts.
func NewFakeAccountAPI() *FakeAccountAPI {
	return &FakeAccountAPI{
		accounts: make(map[string]*FakeAccount),
		tokens:   make(map[string]string),
		codes:    make(map[string]string),
		calls:    make(map[string]int),
	}
}

// AddAccount registers an account and returns its user.
func (f *FakeAccountAPI) AddAccount(email, password string, roles ...string) domainauth.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()

	u := domainauth.User{ID: uuid.New(), Email: email, IsEnabled: true, IsActive: true}
	for _, r := range roles {
		u.Roles = append(u.Roles, domainauth.Role{ID: uuid.New(), Name: r})
	}
	f.accounts[email] = &FakeAccount{Password: password, User: u}
	return u
}

// DisableAccount marks an existing account as disabled.
func (f *FakeAccountAPI) DisableAccount(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	if acc, ok := f.accounts[email]; ok {
		acc.Disabled = true
		acc.User.IsEnabled = false
	}
}

// IssueToken returns a valid token for an existing account, as if it had logged in earlier.
func (f *FakeAccountAPI) IssueToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	return f.issueLocked(email)
}

// IssueCode returns a password reset/activation code for email.
func (f *FakeAccountAPI) IssueCode(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	f.seq++
	code := fmt.Sprintf("code-%d", f.seq)
	f.codes[code] = email
	return code
}

// RevokeTokens invalidates every token issued so far.
func (f *FakeAccountAPI) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

// Calls returns how many times method was invoked.
func (f *FakeAccountAPI) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeAccountAPI) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Grant, error) {
	f.record("Login")
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, creds)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	acc, ok := f.accounts[creds.Email]
	switch {
	case !ok:
		return domainauth.Grant{}, apperrors.NotFoundf("User with email %s not found", creds.Email)
	case acc.Password != creds.Password:
		return domainauth.Grant{}, apperrors.InvalidCredential("Invalid password")
	case acc.Disabled:
		return domainauth.Grant{}, apperrors.AccountDisabled("User is disabled")
	}
	return domainauth.Grant{AccessToken: f.issueLocked(creds.Email), User: acc.User}, nil
}

func (f *FakeAccountAPI) Me(ctx context.Context, token string) (domainauth.User, error) {
	f.record("Me")
	if f.MeFunc != nil {
		return f.MeFunc(ctx, token)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	email, ok := f.tokens[token]
	if !ok {
		return domainauth.User{}, apperrors.InvalidCredential("Not authorized")
	}
	return f.accounts[email].User, nil
}

func (f *FakeAccountAPI) Logout(ctx context.Context, token string) error {
	f.record("Logout")
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx, token)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	delete(f.tokens, token)
	return nil
}

func (f *FakeAccountAPI) StartResetPassword(ctx context.Context, email string) error {
	f.record("StartResetPassword")
	if f.StartResetPasswordFunc != nil {
		return f.StartResetPasswordFunc(ctx, email)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	if _, ok := f.accounts[email]; !ok {
		return apperrors.NotFound("Email not found")
	}
	return nil
}

func (f *FakeAccountAPI) ResetPassword(ctx context.Context, code, password string) (domainauth.Grant, error) {
	f.record("ResetPassword")
	if f.ResetPasswordFunc != nil {
		return f.ResetPasswordFunc(ctx, code, password)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	email, ok := f.codes[code]
	if !ok {
		return domainauth.Grant{}, apperrors.InvalidCredential("Auth code not found")
	}
	delete(f.codes, code)
	acc := f.accounts[email]
	acc.Password = password
	acc.User.IsActive = true
	return domainauth.Grant{AccessToken: f.issueLocked(email), User: acc.User}, nil
}

func (f *FakeAccountAPI) Register(ctx context.Context, creds domainauth.Credentials) error {
	f.record("Register")
	if f.RegisterFunc != nil {
		return f.RegisterFunc(ctx, creds)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	if _, ok := f.accounts[creds.Email]; ok {
		return apperrors.Conflict("User already exists")
	}
	if len(strings.TrimSpace(creds.Password)) < 8 {
		return apperrors.ValidationField("password", "Password too short")
	}
	f.accounts[creds.Email] = &FakeAccount{
		Password: creds.Password,
		User:     domainauth.User{ID: uuid.New(), Email: creds.Email, IsEnabled: true},
	}
	return nil
}

func (f *FakeAccountAPI) Activate(ctx context.Context, code string) (domainauth.Grant, error) {
	f.record("Activate")
	if f.ActivateFunc != nil {
		return f.ActivateFunc(ctx, code)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	email, ok := f.codes[code]
	if !ok {
		return domainauth.Grant{}, apperrors.InvalidCredential("Auth code not found")
	}
	delete(f.codes, code)
	acc := f.accounts[email]
	acc.User.IsActive = true
	return domainauth.Grant{AccessToken: f.issueLocked(email), User: acc.User}, nil
}

func (f *FakeAccountAPI) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensure()
	f.calls[method]++
}

func (f *FakeAccountAPI) ensure() {
	if f.accounts == nil {
		f.accounts = make(map[string]*FakeAccount)
	}
	if f.tokens == nil {
		f.tokens = make(map[string]string)
	}
	if f.codes == nil {
		f.codes = make(map[string]string)
	}
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
}

func (f *FakeAccountAPI) issueLocked(email string) string {
	f.seq++
	tok := fmt.Sprintf("token-%d", f.seq)
	f.tokens[tok] = email
	return tok
}

// MemoryCredentialStore is an in-memory credential store for unit tests.
type MemoryCredentialStore struct {
	// ClearErr, when set, is returned by ClearToken after the token is dropped.
	ClearErr error

	mu    sync.Mutex
	token string
}

// NewMemoryCredentialStore creates a store pre-loaded with token ("" for none).
func NewMemoryCredentialStore(token string) *MemoryCredentialStore {
	return &MemoryCredentialStore{token: token}
}

func (m *MemoryCredentialStore) Token(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryCredentialStore) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryCredentialStore) ClearToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return m.ClearErr
}
