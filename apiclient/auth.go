package apiclient

import (
	"context"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
)

const (
	PathLogin   = "/auth/login"
	PathMembers = "/members"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Name         string `json:"name"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Login exchanges credentials for tokens. A 401 here means bad credentials,
// so it never goes through the session expiry path.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.unbound().DoJSON(ctx, http.MethodPost, PathLogin, LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		var reqErr *apperrors.RequestError
		if apperrors.As(err, &reqErr) && reqErr.StatusCode == http.StatusUnauthorized {
			return LoginResponse{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidCredentials, err)
		}
		return LoginResponse{}, err
	}
	return out, nil
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.unbound().DoJSON(ctx, http.MethodPost, PathMembers, req, nil)
}

func (c *Client) unbound() *Client {
	if c.session == nil {
		return c
	}
	return c.WithSession(nil)
}
