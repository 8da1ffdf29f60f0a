package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
	apperrors "github.com/serm-lab/admin-console/internal/errors"
	"github.com/serm-lab/admin-console/internal/observability/metrics"
	"github.com/serm-lab/admin-console/internal/observability/statsd"
	"github.com/serm-lab/admin-console/internal/ports"
)

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	API         ports.AccountAPI
	Credentials ports.CredentialStore
	Logger      *slog.Logger
	Metrics     statsd.Sink
	// Now overrides the clock used for credential expiry checks.
	Now func() time.Time
}

// SessionStore is the single source of truth for who is logged in to the
// console. It is the only writer of the session state and of the persisted
// credential; everything else reads State or subscribes.
//
// Every applied transition bumps a generation counter. Results of network
// calls that finish after a newer transition was applied are discarded, so a
// slow response can never overwrite a fresher state.
type SessionStore struct {
	api     ports.AccountAPI
	creds   ports.CredentialStore
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time

	loads    singleflight.Group
	watchers *watchers[domainauth.Session]

	mu         sync.Mutex
	state      domainauth.Session
	phase      domainauth.Phase
	token      string
	tokenReady bool
	generation uint64
	epoch      uint64
}

// NewSessionStore constructs a SessionStore in the Uninitialized phase.
func NewSessionStore(opts SessionStoreOptions) *SessionStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		api:      opts.API,
		creds:    opts.Credentials,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      now,
		watchers: newWatchers[domainauth.Session](),
		phase:    domainauth.PhaseUninitialized,
	}
}

// State returns a snapshot of the current session.
func (s *SessionStore) State() domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.state)
}

// Phase returns the current lifecycle phase.
func (s *SessionStore) Phase() domainauth.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns the phase and the session read under one lock, so the two
// always describe the same transition.
func (s *SessionStore) Snapshot() (domainauth.Phase, domainauth.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase, snapshot(s.state)
}

// Subscribe returns a channel that yields the current session immediately and
// then every change. Unread intermediate values are replaced by newer ones.
// The channel is closed when ctx is done.
func (s *SessionStore) Subscribe(ctx context.Context) <-chan domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchers.subscribe(ctx, snapshot(s.state))
}

// InitAuthData reads the persisted credential into memory. It never contacts
// the backend and only runs once until Reset; later calls are no-ops.
// A JWT credential that has already expired is dropped and cleared.
func (s *SessionStore) InitAuthData(ctx context.Context) error {
	s.mu.Lock()
	ready := s.tokenReady
	s.mu.Unlock()
	if ready {
		return nil
	}

	token, err := s.creds.Token(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "read persisted credential failed", "error", err)
		return fmt.Errorf("read credential: %w", err)
	}

	if token != "" && credentialExpired(token, s.now()) {
		s.logger.InfoContext(ctx, "dropping expired credential")
		if clearErr := s.creds.ClearToken(ctx); clearErr != nil {
			s.logger.WarnContext(ctx, "clear expired credential failed", "error", clearErr)
		}
		token = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokenReady {
		s.token = token
		s.tokenReady = true
	}
	return nil
}

// Load restores the session from the persisted credential. With a credential
// it validates it against the backend once; without one it settles on
// Anonymous. Backend failures degrade to Anonymous and clear the credential;
// they are never returned. Concurrent callers share a single in-flight
// request. The only error is ctx.Err() when the caller stops waiting; the
// shared request still completes and is applied.
func (s *SessionStore) Load(ctx context.Context) error {
	if err := s.InitAuthData(ctx); err != nil {
		// Unreadable storage behaves like an empty one.
		s.mu.Lock()
		s.tokenReady = true
		s.mu.Unlock()
	}

	s.mu.Lock()
	key := "load-" + strconv.FormatUint(s.epoch, 10)
	s.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(key, func() (any, error) {
		s.load(detached)
		return nil, nil
	})

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SessionStore) load(ctx context.Context) {
	start := time.Now()

	s.mu.Lock()
	gen := s.generation
	token := s.token
	if !s.state.IsLoaded {
		s.phase = domainauth.PhaseRestoring
	}
	s.mu.Unlock()

	if token == "" {
		applied := s.commit(gen, domainauth.Anonymous(), "")
		s.emit("load", applied, start, nil)
		return
	}

	user, err := s.api.Me(ctx, token)
	if err != nil {
		s.logger.InfoContext(ctx, "session restore failed; continuing anonymously",
			"error_code", apperrors.CodeOf(err), "error", err)
		applied := s.commit(gen, domainauth.Anonymous(), "")
		if applied {
			s.clearPersisted(ctx, token)
		}
		s.emit("load", applied, start, err)
		return
	}

	applied := s.commit(gen, domainauth.Authenticated(user), token)
	if applied {
		s.logger.InfoContext(ctx, "session restored", "user_id", user.ID.String())
	}
	s.emit("load", applied, start, nil)
}

// Login submits credentials. On success the returned credential is persisted
// and the session becomes Authenticated. On failure the state is untouched and
// the classified *errors.AppError is returned for the caller to present.
func (s *SessionStore) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" {
		return domainauth.User{}, apperrors.ValidationField("email", "email is required")
	}
	if creds.Password == "" {
		return domainauth.User{}, apperrors.ValidationField("password", "password is required")
	}

	start := time.Now()
	grant, err := s.api.Login(ctx, creds)
	if err != nil {
		err = classify(err, "login failed")
		s.emit("login", true, start, err)
		return domainauth.User{}, err
	}

	s.establish(ctx, grant)
	s.emit("login", true, start, nil)
	return grant.User, nil
}

// Logout ends the session locally first, then asks the backend to invalidate
// the credential. The remote call is best effort: its failure is logged and
// the console is logged out regardless.
func (s *SessionStore) Logout(ctx context.Context) {
	start := time.Now()

	s.mu.Lock()
	token := s.token
	s.generation++
	s.token = ""
	s.tokenReady = true
	s.setLocked(domainauth.Anonymous())
	s.mu.Unlock()

	if err := s.creds.ClearToken(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear persisted credential failed", "error", err)
	}

	if token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			s.logger.InfoContext(ctx, "remote logout failed; session cleared locally", "error", err)
		}
	}
	s.emit("logout", true, start, nil)
}

// StartResetPassword asks the backend to send a reset code to email.
// It does not touch the session.
func (s *SessionStore) StartResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if err := s.api.StartResetPassword(ctx, email); err != nil {
		return classify(err, "start reset password failed")
	}
	return nil
}

// ResetPassword sets a new password with a mailed code. When the backend
// answers with a credential the session is established exactly as on Login.
func (s *SessionStore) ResetPassword(ctx context.Context, code, password string) (domainauth.User, error) {
	if strings.TrimSpace(code) == "" {
		return domainauth.User{}, apperrors.ValidationField("code", "code is required")
	}
	if password == "" {
		return domainauth.User{}, apperrors.ValidationField("password", "password is required")
	}

	start := time.Now()
	grant, err := s.api.ResetPassword(ctx, code, password)
	if err != nil {
		err = classify(err, "reset password failed")
		s.emit("reset_password", true, start, err)
		return domainauth.User{}, err
	}

	if grant.AccessToken != "" {
		s.establish(ctx, grant)
	}
	s.emit("reset_password", true, start, nil)
	return grant.User, nil
}

// Register creates an account awaiting activation. It does not touch the session.
func (s *SessionStore) Register(ctx context.Context, creds domainauth.Credentials) error {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if err := s.api.Register(ctx, creds); err != nil {
		return classify(err, "register failed")
	}
	return nil
}

// Activate confirms a registration code and establishes the session.
func (s *SessionStore) Activate(ctx context.Context, code string) (domainauth.User, error) {
	if strings.TrimSpace(code) == "" {
		return domainauth.User{}, apperrors.ValidationField("code", "code is required")
	}

	start := time.Now()
	grant, err := s.api.Activate(ctx, code)
	if err != nil {
		err = classify(err, "activate failed")
		s.emit("activate", true, start, err)
		return domainauth.User{}, err
	}
	if grant.AccessToken != "" {
		s.establish(ctx, grant)
	}
	s.emit("activate", true, start, nil)
	return grant.User, nil
}

// IsUserInRoles reports whether the authenticated user holds any of roles.
// It is false whenever the session is not authenticated.
func (s *SessionStore) IsUserInRoles(roles ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsAuthenticated || s.state.User == nil {
		return false
	}
	return s.state.User.HasAnyRole(roles...)
}

// Reset returns the store to the Uninitialized phase, forgetting the
// in-memory credential. Persisted storage is left alone. Results of calls
// still in flight are discarded.
func (s *SessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.epoch++
	s.token = ""
	s.tokenReady = false
	s.state = domainauth.Session{}
	s.phase = domainauth.PhaseUninitialized
	s.watchers.publish(snapshot(s.state))
}

// establish persists grant's credential and applies the authenticated state.
// A persistence failure is logged; the in-process session still stands.
func (s *SessionStore) establish(ctx context.Context, grant domainauth.Grant) {
	if err := s.creds.SetToken(ctx, grant.AccessToken); err != nil {
		s.logger.WarnContext(ctx, "persist credential failed; session will not survive restart", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.token = grant.AccessToken
	s.tokenReady = true
	s.setLocked(domainauth.Authenticated(grant.User))
}

// commit applies next when no transition happened since gen was read.
func (s *SessionStore) commit(gen uint64, next domainauth.Session, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.generation++
	s.token = token
	s.setLocked(next)
	return true
}

// clearPersisted removes token from storage unless a newer credential replaced it.
func (s *SessionStore) clearPersisted(ctx context.Context, token string) {
	stored, err := s.creds.Token(ctx)
	if err == nil && stored != "" && stored != token {
		return
	}
	if err := s.creds.ClearToken(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear stale credential failed", "error", err)
	}
}

func (s *SessionStore) setLocked(next domainauth.Session) {
	s.state = next
	s.phase = next.Phase()
	s.watchers.publish(snapshot(next))
}

func (s *SessionStore) emit(op string, applied bool, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	result := metrics.ResultSuccess
	switch {
	case !applied:
		result = metrics.ResultStale
	case err != nil:
		result = metrics.ResultError
	}
	metrics.EmitSessionTransition(s.metrics, metrics.SessionMetric{
		Operation: op,
		Result:    result,
		Duration:  time.Since(start),
		Err:       err,
	})
}

// snapshot deep-copies the user, its roles and their permissions so callers
// cannot mutate store state.
func snapshot(sess domainauth.Session) domainauth.Session {
	if sess.User == nil {
		return sess
	}
	u := *sess.User
	if u.Roles != nil {
		roles := make([]domainauth.Role, len(u.Roles))
		for i, role := range u.Roles {
			role.Permissions = append([]domainauth.Permission(nil), role.Permissions...)
			roles[i] = role
		}
		u.Roles = roles
	}
	sess.User = &u
	return sess
}

// classify guarantees err carries an AppError code, wrapping anything
// unclassified as Unknown.
func classify(err error, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, message)
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, message)
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeUnknown, message)
	}
}
