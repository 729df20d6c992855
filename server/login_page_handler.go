package server

import (
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
	"github.com/jrsteele09/go-monologue/members"
	"github.com/jrsteele09/go-monologue/sessions"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	Email string // Preserve email on error
}

// LoginPageHandler displays the login page (GET /users/login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageLogin, View{
			Title: "Log in",
			Error: r.URL.Query().Get("error"),
			Data:  LoginPageData{Email: r.URL.Query().Get("email")},
		})
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderStatus(w, r, http.StatusBadRequest, "Invalid form data")
			return
		}

		form := members.LoginForm{
			Email:    strings.TrimSpace(r.FormValue("email")),
			Password: r.FormValue("password"),
		}
		view := View{Title: "Log in", Data: LoginPageData{Email: form.Email}}

		if err := members.ValidateLogin(form); err != nil {
			view.Error = apperrors.UserMessage(err)
			s.render(w, r, http.StatusUnprocessableEntity, pageLogin, view)
			return
		}

		st := stateFrom(r.Context())
		resp, err := st.api.Login(r.Context(), form.Email, form.Password)
		if err != nil {
			// Bad credentials are a form error here, never a forced logout
			s.handleAPIError(w, r, err, pageLogin, view)
			return
		}

		name := resp.Name
		if name == "" {
			name, _, _ = strings.Cut(form.Email, "@")
		}
		identity := sessions.Identity{Email: form.Email, Name: name}
		tokens := sessions.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
		if err := st.session.Login(r.Context(), identity, tokens); err != nil {
			log.Err(err).Str("browser_id", st.browserID).Msg("Failed to persist login")
			if !st.session.IsLoggedIn() {
				view.Error = apperrors.UserMessage(err)
				s.render(w, r, http.StatusBadGateway, pageLogin, view)
				return
			}
		}

		setFlash(w, r, "Welcome back, "+name+"!")
		redirectSuccess(w, r, RouteHome)
	}
}

// LogoutHandler clears the session. Logging out twice is harmless.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := stateFrom(r.Context())
		if err := st.session.Logout(r.Context()); err != nil {
			log.Err(err).Str("browser_id", st.browserID).Msg("Failed to clear session")
		}
		redirectSuccess(w, r, RouteHome)
	}
}
