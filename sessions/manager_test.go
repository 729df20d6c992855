package sessions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-monologue/localstore"
	"github.com/jrsteele09/go-monologue/sessions"
	"github.com/stretchr/testify/require"
)

const testScope = "browser-1"

var testIdentity = sessions.Identity{Email: "ada@example.com", Name: "Ada"}

type testFixture struct {
	repo    *localstore.InMemoryRepo
	store   *sessions.Store
	manager *sessions.Manager
	now     time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo: localstore.NewInMemoryRepo(),
		now:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.store = sessions.NewStore(f.repo, testScope)
	f.manager = sessions.NewManager(f.store, sessions.WithClock(func() time.Time { return f.now }))
	return f
}

func (f *testFixture) get(t *testing.T, key string) (string, bool) {
	t.Helper()
	value, ok, err := f.repo.Get(context.Background(), testScope, key)
	require.NoError(t, err)
	return value, ok
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ada@example.com",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return signed
}

func TestLoginPersistsSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	err := f.manager.Login(ctx, testIdentity, sessions.Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"})
	require.NoError(t, err)

	require.True(t, f.manager.IsLoggedIn())
	user, ok := f.manager.CurrentUser()
	require.True(t, ok)
	require.Equal(t, testIdentity, user)
	require.Equal(t, "access-1", f.manager.Token(ctx).AccessToken)

	for key, want := range map[string]string{
		sessions.KeyAccessToken:  "access-1",
		sessions.KeyRefreshToken: "refresh-1",
		sessions.KeyUserEmail:    "ada@example.com",
		sessions.KeyUserName:     "Ada",
	} {
		got, ok := f.get(t, key)
		require.True(t, ok, key)
		require.Equal(t, want, got, key)
	}
}

func TestLoginWithoutAccessTokenIsRejected(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.Login(context.Background(), testIdentity, sessions.Tokens{})
	require.Error(t, err)
	require.False(t, f.manager.IsLoggedIn())
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Set(ctx, testScope, "darkMode", "true"))
	require.NoError(t, f.manager.Login(ctx, testIdentity, sessions.Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}))

	require.NoError(t, f.manager.Logout(ctx))
	first := f.manager.Snapshot()

	require.NoError(t, f.manager.Logout(ctx))
	require.Equal(t, first, f.manager.Snapshot())
	require.False(t, f.manager.IsLoggedIn())

	for _, key := range []string{sessions.KeyAccessToken, sessions.KeyRefreshToken, sessions.KeyUserEmail, sessions.KeyUserName} {
		_, ok := f.get(t, key)
		require.False(t, ok, key)
	}

	// Preferences are not part of the session
	_, ok := f.get(t, "darkMode")
	require.True(t, ok)
}

func TestExpireClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.manager.Login(ctx, testIdentity, sessions.Tokens{AccessToken: "access-1"}))

	require.NoError(t, f.manager.Expire(ctx))

	require.False(t, f.manager.IsLoggedIn())
	require.Nil(t, f.manager.Token(ctx))
	_, ok := f.get(t, sessions.KeyAccessToken)
	require.False(t, ok)
}

func TestHydrate(t *testing.T) {
	tests := []struct {
		name         string
		stored       map[string]string
		wantLoggedIn bool
		wantCleared  bool
	}{
		{
			name:         "complete session",
			stored:       map[string]string{"accessToken": "opaque", "userEmail": "ada@example.com", "userName": "Ada"},
			wantLoggedIn: true,
		},
		{
			name:        "token without identity",
			stored:      map[string]string{"accessToken": "opaque"},
			wantCleared: true,
		},
		{
			name:   "identity without token",
			stored: map[string]string{"userEmail": "ada@example.com", "userName": "Ada"},
		},
		{
			name:        "missing name",
			stored:      map[string]string{"accessToken": "opaque", "userEmail": "ada@example.com"},
			wantCleared: true,
		},
		{
			name: "nothing stored",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			ctx := context.Background()
			for k, v := range tt.stored {
				require.NoError(t, f.repo.Set(ctx, testScope, k, v))
			}

			require.NoError(t, f.manager.Hydrate(ctx))
			require.Equal(t, tt.wantLoggedIn, f.manager.IsLoggedIn())
			if !tt.wantLoggedIn {
				require.Nil(t, f.manager.Token(ctx))
			}
			if tt.wantCleared {
				_, ok := f.get(t, sessions.KeyAccessToken)
				require.False(t, ok)
			}
		})
	}
}

func TestHydrateJWTExpiry(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	valid := signedToken(t, f.now.Add(time.Hour))
	require.NoError(t, f.store.SaveTokens(ctx, sessions.Tokens{AccessToken: valid}))
	require.NoError(t, f.store.SaveIdentity(ctx, testIdentity))
	require.NoError(t, f.manager.Hydrate(ctx))
	require.True(t, f.manager.IsLoggedIn())

	f.now = f.now.Add(2 * time.Hour)
	require.NoError(t, f.manager.Hydrate(ctx))
	require.False(t, f.manager.IsLoggedIn())

	_, ok := f.get(t, sessions.KeyAccessToken)
	require.False(t, ok)
	_, ok = f.get(t, sessions.KeyUserEmail)
	require.False(t, ok)
}

type failingRepo struct {
	localstore.Repo
}

func (failingRepo) Set(context.Context, string, string, string) error {
	return errors.New("disk full")
}

func TestLoginReportsStoreFailure(t *testing.T) {
	store := sessions.NewStore(failingRepo{Repo: localstore.NewInMemoryRepo()}, testScope)
	manager := sessions.NewManager(store)

	err := manager.Login(context.Background(), testIdentity, sessions.Tokens{AccessToken: "access-1"})
	require.ErrorContains(t, err, "disk full")
	require.True(t, manager.IsLoggedIn())
}

func TestProviderHydratesPerScope(t *testing.T) {
	repo := localstore.NewInMemoryRepo()
	ctx := context.Background()
	provider := sessions.NewProvider(repo)

	first, err := provider.Manager(ctx, "browser-1")
	require.NoError(t, err)
	require.NoError(t, first.Login(ctx, testIdentity, sessions.Tokens{AccessToken: "access-1"}))

	again, err := provider.Manager(ctx, "browser-1")
	require.NoError(t, err)
	require.True(t, again.IsLoggedIn())

	other, err := provider.Manager(ctx, "browser-2")
	require.NoError(t, err)
	require.False(t, other.IsLoggedIn())
}

func TestTokensOAuth2(t *testing.T) {
	token := sessions.Tokens{AccessToken: "a", RefreshToken: "r"}.OAuth2()
	require.Equal(t, "Bearer", token.Type())
	require.Equal(t, "a", token.AccessToken)
	require.Equal(t, "r", token.RefreshToken)
}
