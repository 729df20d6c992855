package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-monologue/apiclient"
	"github.com/jrsteele09/go-monologue/monologues"
	"github.com/jrsteele09/go-monologue/sessions"
	"github.com/jrsteele09/go-monologue/theme"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyBrowserID stores the browser storage scope
	ContextKeyBrowserID ContextKey = "browser_id"
	// ContextKeyRequestState stores the per-request session state
	ContextKeyRequestState ContextKey = "request_state"
)

// requestState is everything a page needs about the current browser.
type requestState struct {
	browserID  string
	session    *sessions.Manager
	theme      *theme.Preference
	api        *apiclient.Client
	monologues monologues.Service
}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(ContextKeyRequestState).(*requestState)
	return st
}

// BrowserStorageMiddleware makes sure the browser has a storage scope cookie.
func (s *Server) BrowserStorageMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var browserID string
		if cookie, err := r.Cookie(browserCookieName); err == nil {
			if id, err := uuid.Parse(cookie.Value); err == nil {
				browserID = id.String()
			}
		}
		if browserID == "" {
			browserID = uuid.NewString()
			s.SetBrowserCookie(w, r, browserID)
		}

		ctx := context.WithValue(r.Context(), ContextKeyBrowserID, browserID)
		next(w, r.WithContext(ctx))
	}
}

// SessionMiddleware hydrates the browser's session and binds the API client to it.
func (s *Server) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		browserID, _ := r.Context().Value(ContextKeyBrowserID).(string)
		if browserID == "" {
			s.renderStatus(w, r, http.StatusInternalServerError, "Browser storage is unavailable.")
			return
		}

		manager, err := s.sessions.Manager(r.Context(), browserID)
		if err != nil {
			log.Err(err).Str("browser_id", browserID).Msg("Failed to load session")
			s.renderStatus(w, r, http.StatusInternalServerError, "Your session could not be loaded. Please try again.")
			return
		}

		api := s.api.WithSession(manager)
		st := &requestState{
			browserID:  browserID,
			session:    manager,
			theme:      theme.New(s.sessions.Repo(), browserID),
			api:        api,
			monologues: s.services(api),
		}
		ctx := context.WithValue(r.Context(), ContextKeyRequestState, st)
		next(w, r.WithContext(ctx))
	}
}

// RequireLogin redirects anonymous visitors to the login page before the
// handler can reach the backend.
func (s *Server) RequireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := stateFrom(r.Context())
		if st == nil || !st.session.IsLoggedIn() {
			redirectSuccess(w, r, RouteLogin)
			return
		}
		next(w, r)
	}
}

// RedirectIfLoggedIn sends logged in members away from the login and signup pages.
func (s *Server) RedirectIfLoggedIn(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st := stateFrom(r.Context()); st != nil && st.session.IsLoggedIn() {
			redirectSuccess(w, r, RouteHome)
			return
		}
		next(w, r)
	}
}
