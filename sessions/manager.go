package sessions

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
	"github.com/jrsteele09/go-monologue/localstore"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Manager owns the login state of one storage scope. Login, Logout and Expire
// are the only mutations, and each one writes through to the Store.
type Manager struct {
	mu      sync.RWMutex
	store   *Store
	session Session
	now     func() time.Time
}

type ManagerOption func(*Manager)

// WithClock overrides the clock used to check token expiry.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store *Store, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hydrate loads the persisted session. Only a complete set of access token,
// email and name logs the user in; anything partial stays logged out. A token
// carrying an exp claim in the past is cleared as if the backend had said 401.
func (m *Manager) Hydrate(ctx context.Context) error {
	tokens, err := m.store.Tokens(ctx)
	if err != nil {
		return apperrors.Wrapf(err, "read session tokens")
	}
	identity, err := m.store.Identity(ctx)
	if err != nil {
		return apperrors.Wrapf(err, "read session identity")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = Session{}
	if tokens.AccessToken == "" {
		return nil
	}
	if !identity.complete() {
		if err := m.store.ClearToken(ctx); err != nil {
			return apperrors.Wrapf(err, "clear orphaned access token")
		}
		return nil
	}
	if tokenExpired(tokens.AccessToken, m.now()) {
		log.Debug().Str("scope", m.store.Scope()).Msg("stored access token has expired")
		if err := m.store.Clear(ctx); err != nil {
			return apperrors.Wrapf(err, "clear expired session")
		}
		return nil
	}

	m.session = Session{LoggedIn: true, Identity: identity, Tokens: tokens}
	return nil
}

// Login records a successful authentication. The in-memory state is always
// updated; the returned error only reports a failing store.
func (m *Manager) Login(ctx context.Context, identity Identity, tokens Tokens) error {
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return apperrors.NewValidationError("accessToken", "The server did not return an access token.")
	}

	m.mu.Lock()
	m.session = Session{LoggedIn: true, Identity: identity, Tokens: tokens}
	m.mu.Unlock()

	if err := m.store.SaveTokens(ctx, tokens); err != nil {
		return apperrors.Wrapf(err, "persist session tokens")
	}
	if err := m.store.SaveIdentity(ctx, identity); err != nil {
		return apperrors.Wrapf(err, "persist session identity")
	}
	return nil
}

// Logout clears the session. Calling it again is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.session = Session{}
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return apperrors.Wrapf(err, "clear session")
	}
	return nil
}

// Expire is called when the backend rejects the access token.
func (m *Manager) Expire(ctx context.Context) error {
	log.Info().Str("scope", m.store.Scope()).Msg("session expired, logging out")
	return m.Logout(ctx)
}

func (m *Manager) IsLoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.LoggedIn
}

// CurrentUser returns the identity and whether anyone is logged in.
func (m *Manager) CurrentUser() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Identity, m.session.LoggedIn
}

// Token returns the bearer token, or nil when logged out.
func (m *Manager) Token(_ context.Context) *oauth2.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.session.LoggedIn {
		return nil
	}
	return m.session.Tokens.OAuth2()
}

func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Opaque, non-JWT tokens are left for the backend to judge.
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// Provider builds hydrated managers for storage scopes. It is created once at
// start-up and shared by every request.
type Provider struct {
	repo localstore.Repo
	opts []ManagerOption
}

func NewProvider(repo localstore.Repo, opts ...ManagerOption) *Provider {
	return &Provider{repo: repo, opts: opts}
}

func (p *Provider) Repo() localstore.Repo {
	return p.repo
}

func (p *Provider) Manager(ctx context.Context, scope string) (*Manager, error) {
	m := NewManager(NewStore(p.repo, scope), p.opts...)
	if err := m.Hydrate(ctx); err != nil {
		return nil, err
	}
	return m, nil
}
