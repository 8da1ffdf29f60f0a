package cookiestore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	s, err := New(Options{Origin: "https://api.serm.example/api"})
	require.NoError(t, err)
	ctx := context.Background()

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.SetToken(ctx, "jwt-abc"))
	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", tok)

	require.NoError(t, s.SetToken(ctx, "jwt-def"))
	tok, _ = s.Token(ctx)
	assert.Equal(t, "jwt-def", tok, "newer credential replaces the old one")

	require.NoError(t, s.ClearToken(ctx))
	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestStore_CookieScopedToOrigin(t *testing.T) {
	s, err := New(Options{Origin: "https://api.serm.example"})
	require.NoError(t, err)
	require.NoError(t, s.SetToken(context.Background(), "jwt-abc"))

	u, _ := http.NewRequest(http.MethodGet, "https://api.serm.example/account/me", nil)
	cookies := s.Jar().Cookies(u.URL)
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)

	other, _ := http.NewRequest(http.MethodGet, "https://evil.example/", nil)
	assert.Empty(t, s.Jar().Cookies(other.URL))
}

func TestStore_JarRidesOnRequests(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(DefaultCookieName); err == nil {
			got = c.Value
		}
	}))
	defer srv.Close()

	s, err := New(Options{Origin: srv.URL})
	require.NoError(t, err)
	require.NoError(t, s.SetToken(context.Background(), "jwt-abc"))

	client := &http.Client{Jar: s.Jar()}
	resp, err := client.Get(srv.URL + "/account/me")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "jwt-abc", got)
}

func TestStore_FileMirror(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "credential")
	ctx := context.Background()

	s, err := New(Options{Origin: "http://localhost:8000", File: file})
	require.NoError(t, err)
	require.NoError(t, s.SetToken(ctx, "jwt-abc"))

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restarted, err := New(Options{Origin: "http://localhost:8000", File: file})
	require.NoError(t, err)
	tok, err := restarted.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", tok)

	require.NoError(t, restarted.ClearToken(ctx))
	_, err = os.Stat(file)
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, restarted.ClearToken(ctx), "clearing without a file is fine")
}

func TestStore_FileOlderThanTTLIsIgnored(t *testing.T) {
	file := filepath.Join(t.TempDir(), "credential")
	require.NoError(t, os.WriteFile(file, []byte("jwt-old\n"), 0o600))
	later := time.Now().Add(2 * time.Hour)

	s, err := New(Options{Origin: "http://localhost:8000", File: file, TTL: time.Hour, Now: func() time.Time { return later }})
	require.NoError(t, err)

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestNew_RejectsRelativeOrigin(t *testing.T) {
	_, err := New(Options{Origin: "/api"})
	require.Error(t, err)
	_, err = New(Options{})
	require.Error(t, err)
}
