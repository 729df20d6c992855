package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-monologue/apiclient"
	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
	"github.com/jrsteele09/go-monologue/members"
	"github.com/jrsteele09/go-monologue/sessions"
	"github.com/rs/zerolog/log"
)

// SignupPageData preserves what the visitor typed, never the passwords
type SignupPageData struct {
	Name         string
	Email        string
	PasswordHint string
}

// SignupGetHandler renders the signup page
func (s *Server) SignupGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageSignup, View{
			Title: "Sign up",
			Error: r.URL.Query().Get("error"),
			Data:  SignupPageData{PasswordHint: members.PasswordHint},
		})
	}
}

// SignupPostHandler registers the member, then logs them straight in.
func (s *Server) SignupPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.renderStatus(w, r, http.StatusBadRequest, "Invalid form data")
			return
		}

		form := members.SignupForm{
			Name:            r.FormValue("name"),
			Email:           r.FormValue("email"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirmPassword"),
		}.Normalise()
		view := View{
			Title: "Sign up",
			Data:  SignupPageData{Name: form.Name, Email: form.Email, PasswordHint: members.PasswordHint},
		}

		if err := members.ValidateSignup(form); err != nil {
			view.Error = apperrors.UserMessage(err)
			s.render(w, r, http.StatusUnprocessableEntity, pageSignup, view)
			return
		}

		st := stateFrom(r.Context())
		err := st.api.Signup(r.Context(), apiclient.SignupRequest{
			Email:    form.Email,
			Password: form.Password,
			Name:     form.Name,
		})
		if err != nil {
			s.handleAPIError(w, r, err, pageSignup, view)
			return
		}

		resp, err := st.api.Login(r.Context(), form.Email, form.Password)
		if err != nil {
			log.Warn().Err(err).Str("email", form.Email).Msg("Signed up but automatic login failed")
			redirectToLoginAfterSignup(w, r, form.Email)
			return
		}

		name := resp.Name
		if name == "" {
			name = form.Name
		}
		identity := sessions.Identity{Email: form.Email, Name: name}
		tokens := sessions.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
		if err := st.session.Login(r.Context(), identity, tokens); err != nil {
			log.Err(err).Str("browser_id", st.browserID).Msg("Failed to persist login")
			if !st.session.IsLoggedIn() {
				redirectToLoginAfterSignup(w, r, form.Email)
				return
			}
		}

		setFlash(w, r, "Welcome, "+name+"!")
		redirectSuccess(w, r, RouteHome)
	}
}

func redirectToLoginAfterSignup(w http.ResponseWriter, r *http.Request, email string) {
	setFlash(w, r, "Your account is ready. Please log in.")
	redirectSuccess(w, r, RouteLogin+"?email="+url.QueryEscape(email))
}
