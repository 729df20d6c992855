package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// IndexHandler renders the home page: a greeting and quick write form for
// members, an introduction for everyone else.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageIndex, View{Title: "Home"})
	}
}

// ThemeToggleHandler flips dark mode and returns to the page it came from
func (s *Server) ThemeToggleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := stateFrom(r.Context())
		if _, err := st.theme.Toggle(r.Context()); err != nil {
			log.Err(err).Str("browser_id", st.browserID).Msg("Failed to save theme")
			s.renderStatus(w, r, http.StatusInternalServerError, "Your preference could not be saved.")
			return
		}
		redirectSuccess(w, r, safeReturnPath(r, RouteHome))
	}
}
