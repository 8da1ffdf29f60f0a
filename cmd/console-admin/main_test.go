package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
	apperrors "github.com/serm-lab/admin-console/internal/errors"
	mockauth "github.com/serm-lab/admin-console/internal/mocks/auth"
	"github.com/serm-lab/admin-console/internal/service"
)

type cliFixture struct {
	api   *mockauth.FakeAccountAPI
	creds *mockauth.MemoryCredentialStore
	out   *bytes.Buffer
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	api := mockauth.NewFakeAccountAPI()
	api.AddAccount("admin@example.com", "secret123", domainauth.RoleAdmin)
	return &cliFixture{api: api, creds: mockauth.NewMemoryCredentialStore(""), out: &bytes.Buffer{}}
}

// context builds a fresh session store per command, as separate CLI
// invocations would, sharing the persisted credential.
func (f *cliFixture) context(stdin string) *commandContext {
	return &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Out:    f.out,
		In:     strings.NewReader(stdin),
		Session: func() (sessionClient, func(), error) {
			store := service.NewSessionStore(service.SessionStoreOptions{
				API:         f.api,
				Credentials: f.creds,
				Logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
			})
			return store, nil, nil
		},
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	f := newCLIFixture(t)

	require.NoError(t, runLogin(f.context("secret123\n"), []string{"--email", " admin@example.com ", "--password-stdin"}))
	assert.Contains(t, f.out.String(), "Logged in.")
	token, _ := f.creds.Token(context.Background())
	assert.NotEmpty(t, token)

	f.out.Reset()
	require.NoError(t, runWhoami(f.context(""), nil))
	out := f.out.String()
	assert.Contains(t, out, "authenticated")
	assert.Contains(t, out, "admin@example.com")
	assert.Contains(t, out, "admin")

	f.out.Reset()
	require.NoError(t, runLogout(f.context(""), nil))
	assert.Contains(t, f.out.String(), "Logged out.")
	token, _ = f.creds.Token(context.Background())
	assert.Empty(t, token)

	f.out.Reset()
	require.NoError(t, runWhoami(f.context(""), nil))
	assert.Contains(t, f.out.String(), "anonymous")

	f.out.Reset()
	require.NoError(t, runLogout(f.context(""), nil))
	assert.Contains(t, f.out.String(), "Not logged in.")
}

func TestLoginFailureKeepsClassifiedError(t *testing.T) {
	f := newCLIFixture(t)

	err := runLogin(f.context(""), []string{"--email", "admin@example.com", "--password", "wrong"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidCredential))

	err = runLogin(f.context(""), []string{"--email", "ghost@example.com", "--password", "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestResetPasswordFlow(t *testing.T) {
	f := newCLIFixture(t)

	require.NoError(t, runStartResetPassword(f.context(""), []string{"--email", "admin@example.com"}))
	assert.Contains(t, f.out.String(), "Reset code sent to admin@example.com.")

	f.out.Reset()
	code := f.api.IssueCode("admin@example.com")
	require.NoError(t, runResetPassword(f.context("brand-new\n"), []string{"--code", code, "--password-stdin"}))
	assert.Contains(t, f.out.String(), "Password updated.")

	f.out.Reset()
	require.NoError(t, runLogin(f.context(""), []string{"--email", "admin@example.com", "--password", "brand-new"}))
}

func TestRegisterAndActivate(t *testing.T) {
	f := newCLIFixture(t)

	require.NoError(t, runRegister(f.context(""), []string{"--email", "new@example.com", "--password", "long-enough"}))
	assert.Contains(t, f.out.String(), "Registered new@example.com")

	err := runRegister(f.context(""), []string{"--email", "new@example.com", "--password", "long-enough"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))

	f.out.Reset()
	require.NoError(t, runActivate(f.context(""), []string{"--code", f.api.IssueCode("new@example.com")}))
	out := f.out.String()
	assert.Contains(t, out, "Account activated.")
	assert.Contains(t, out, "new@example.com")
}

func TestParseCredentialFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing email", []string{"--password", "x"}, "--email is required"},
		{"missing password", []string{"--email", "a@b.c"}, "--password or --password-stdin is required"},
		{"both password sources", []string{"--email", "a@b.c", "--password", "x", "--password-stdin"}, "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCredentialFlags("login", tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	opts, err := parseCredentialFlags("login", []string{"--email", "a@b.c", "--password", "x", "--timeout", "5s"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", opts.Email)
	assert.Equal(t, "5s", opts.Timeout.String())
}

func TestReadPassword(t *testing.T) {
	got, err := readPassword(strings.NewReader("hunter2\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	got, err = readPassword(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)

	_, err = readPassword(strings.NewReader("\n"))
	require.Error(t, err)
}

func TestRunPages(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"middle", []string{"--total", "20", "--page", "10"}, "1 2 3 4 … 9 [10] 11 … 18 19 20\n"},
		{"near start", []string{"--total", "20", "--page", "2"}, "1 [2] 3 4 5 6 7 … 15 16 17 18 19 20\n"},
		{"short", []string{"--total", "3", "--page", "3"}, "1 2 [3]\n"},
		{"single page", []string{"--total", "1"}, "(no pagination)\n"},
		{"from rows", []string{"--rows", "25", "--page-size", "10"}, "[1] 2 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, runPages(&commandContext{Out: &out}, tt.args))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestParsePagesFlagsErrors(t *testing.T) {
	_, err := parsePagesFlags(nil)
	require.Error(t, err)

	_, err = parsePagesFlags([]string{"--total", "3", "--rows", "30"})
	require.Error(t, err)

	_, err = parsePagesFlags([]string{"--rows", "30", "--page-size", "0"})
	require.Error(t, err)
}

func TestPrintUsageListsCommands(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printUsage(&out))
	for name := range commands() {
		assert.Contains(t, out.String(), name)
	}
}
