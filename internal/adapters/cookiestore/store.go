package cookiestore

// Package cookiestore keeps the console credential as an access_token cookie
// scoped to the API origin, the way a browser holds it.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/serm-lab/admin-console/internal/ports"
)

// DefaultCookieName matches the cookie the backend reads.
const DefaultCookieName = "access_token"

// Options configures Store.
type Options struct {
	// Origin is the API base URL the cookie is scoped to.
	Origin string
	// CookieName defaults to DefaultCookieName.
	CookieName string
	// TTL sets the cookie expiry; 0 makes it a session cookie.
	TTL time.Duration
	// File, when set, mirrors the cookie to disk so it survives restarts.
	File string
	Now  func() time.Time
}

// Store is a cookie-jar backed credential store. The jar is shared with the
// HTTP client talking to the backend so the cookie also rides on requests.
type Store struct {
	jar    *cookiejar.Jar
	origin *url.URL
	name   string
	ttl    time.Duration
	file   string
	now    func() time.Time

	mu sync.Mutex
}

var _ ports.CredentialStore = (*Store)(nil)

// New creates a Store. A credential already present in opts.File is loaded
// into the jar.
func New(opts Options) (*Store, error) {
	origin, err := url.Parse(strings.TrimSpace(opts.Origin))
	if err != nil {
		return nil, fmt.Errorf("parse cookie origin: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("cookie origin must be an absolute url: %q", opts.Origin)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	name := opts.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Store{
		jar:    jar,
		origin: &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"},
		name:   name,
		ttl:    opts.TTL,
		file:   opts.File,
		now:    now,
	}

	if s.file != "" {
		tok, readErr := s.readFile()
		if readErr != nil {
			return nil, readErr
		}
		if tok != "" {
			s.setCookie(tok)
		}
	}
	return s, nil
}

// Jar exposes the cookie jar for the backend HTTP client.
func (s *Store) Jar() http.CookieJar { return s.jar }

// Token returns the credential cookie value for the origin, or "".
func (s *Store) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.jar.Cookies(s.origin) {
		if c.Name == s.name {
			return c.Value, nil
		}
	}
	return "", nil
}

// SetToken stores token as the credential cookie. An empty token clears.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearToken(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCookie(token)
	return s.writeFile(token)
}

// ClearToken expires the credential cookie and removes the mirrored file.
func (s *Store) ClearToken(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar.SetCookies(s.origin, []*http.Cookie{{
		Name:   s.name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}})
	if s.file == "" {
		return nil
	}
	if err := os.Remove(s.file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}

func (s *Store) setCookie(token string) {
	c := &http.Cookie{
		Name:     s.name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.origin.Scheme == "https",
		SameSite: http.SameSiteLaxMode,
	}
	if s.ttl > 0 {
		c.Expires = s.now().Add(s.ttl)
	}
	s.jar.SetCookies(s.origin, []*http.Cookie{c})
}

func (s *Store) readFile() (string, error) {
	info, err := os.Stat(s.file)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat credential file: %w", err)
	}
	if s.ttl > 0 && s.now().Sub(info.ModTime()) > s.ttl {
		return "", nil
	}
	raw, err := os.ReadFile(s.file)
	if err != nil {
		return "", fmt.Errorf("read credential file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s *Store) writeFile(token string) error {
	if s.file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.file), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	if err := os.WriteFile(s.file, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}
