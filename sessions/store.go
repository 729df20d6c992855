package sessions

import (
	"context"

	"github.com/jrsteele09/go-monologue/localstore"
)

// Persisted keys. They are part of the storage contract, do not rename.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserEmail    = "userEmail"
	KeyUserName     = "userName"
)

// Store reads and writes the session keys of one storage scope.
type Store struct {
	repo  localstore.Repo
	scope string
}

func NewStore(repo localstore.Repo, scope string) *Store {
	return &Store{repo: repo, scope: scope}
}

func (s *Store) Scope() string {
	return s.scope
}

func (s *Store) Tokens(ctx context.Context) (Tokens, error) {
	access, _, err := s.repo.Get(ctx, s.scope, KeyAccessToken)
	if err != nil {
		return Tokens{}, err
	}
	refresh, _, err := s.repo.Get(ctx, s.scope, KeyRefreshToken)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Store) Identity(ctx context.Context) (Identity, error) {
	email, _, err := s.repo.Get(ctx, s.scope, KeyUserEmail)
	if err != nil {
		return Identity{}, err
	}
	name, _, err := s.repo.Get(ctx, s.scope, KeyUserName)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Email: email, Name: name}, nil
}

// SaveTokens writes the access token and, when present, the refresh token.
// A missing refresh token removes any stale one.
func (s *Store) SaveTokens(ctx context.Context, tokens Tokens) error {
	if err := s.repo.Set(ctx, s.scope, KeyAccessToken, tokens.AccessToken); err != nil {
		return err
	}
	if tokens.RefreshToken == "" {
		return s.repo.Delete(ctx, s.scope, KeyRefreshToken)
	}
	return s.repo.Set(ctx, s.scope, KeyRefreshToken, tokens.RefreshToken)
}

func (s *Store) SaveIdentity(ctx context.Context, identity Identity) error {
	if err := s.repo.Set(ctx, s.scope, KeyUserEmail, identity.Email); err != nil {
		return err
	}
	return s.repo.Set(ctx, s.scope, KeyUserName, identity.Name)
}

// Clear removes all four session keys. Other keys in the scope (darkMode) survive.
func (s *Store) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, s.scope, KeyAccessToken, KeyRefreshToken, KeyUserEmail, KeyUserName)
}

func (s *Store) ClearToken(ctx context.Context) error {
	return s.repo.Delete(ctx, s.scope, KeyAccessToken)
}
