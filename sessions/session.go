package sessions

import (
	"strings"

	"golang.org/x/oauth2"
)

// Identity is the cached user identity shown in the UI.
type Identity struct {
	Email string
	Name  string
}

func (i Identity) complete() bool {
	return strings.TrimSpace(i.Email) != "" && strings.TrimSpace(i.Name) != ""
}

// Tokens are the opaque credentials issued by the backend on login.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// OAuth2 returns the tokens as a bearer oauth2.Token.
func (t Tokens) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
	}
}

// Session is a snapshot of the signed-in state.
type Session struct {
	LoggedIn bool
	Identity Identity
	Tokens   Tokens
}
