package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
	"github.com/jrsteele09/go-monologue/monologues"
	"github.com/jrsteele09/go-monologue/sessions"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const contentTypeHTML = "text/html; charset=utf-8"

const (
	pageIndex  = "index.html"
	pageLogin  = "login.html"
	pageSignup = "signup.html"
	pageList   = "list.html"
	pageWrite  = "write.html"
	pageRandom = "random.html"
	pageDetail = "detail.html"
	pageEdit   = "edit.html"
	pageDelete = "delete.html"
	pageStatus = "status.html"
)

var pageNames = []string{pageIndex, pageLogin, pageSignup, pageList, pageWrite, pageRandom, pageDetail, pageEdit, pageDelete, pageStatus}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"formatDate": func(t monologues.Timestamp) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("January 2, 2006 15:04")
	},
	"daysAgo": func(t monologues.Timestamp) string {
		return monologues.DaysAgo(t.Time, time.Now())
	},
	"detailPath":     func(id monologues.ID) string { return monologuePath(id.String()) },
	"editPath":       func(id monologues.ID) string { return monologueEditPath(id.String()) },
	"deletePath":     func(id monologues.ID) string { return monologueDeletePath(id.String()) },
	"attachmentPath": func(id monologues.ID) string { return monologueAttachmentPath(id.String()) },
}

// ParseTemplate parses a page together with the shared layout
func ParseTemplate(name string) (*template.Template, error) {
	return template.New("layout.html").Funcs(templateFuncs).ParseFS(TemplateFilesFS(), "layout.html", name)
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, apperrors.Wrapf(err, "parse %s", name)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// View is what a handler hands to the layout.
type View struct {
	Title string
	Error string
	Data  any
}

// PageData is the model every template receives
type PageData struct {
	AppName        string
	Title          string
	DarkMode       bool
	LoggedIn       bool
	User           sessions.Identity
	Flash          string
	FlashTimeoutMS int64
	Error          string
	Data           any
}

func (s *Server) pageData(w http.ResponseWriter, r *http.Request, view View) PageData {
	data := PageData{
		AppName:        s.config.GetAppName(),
		Title:          view.Title,
		FlashTimeoutMS: s.config.GetFlashTimeout().Milliseconds(),
		Error:          view.Error,
		Data:           view.Data,
	}
	if st := stateFrom(r.Context()); st != nil {
		data.User, data.LoggedIn = st.session.CurrentUser()
		data.DarkMode = st.theme.DarkMode(r.Context())
		data.Flash = popFlash(w, r)
	}
	return data
}

// render executes a page. Nothing is written when the client has gone away.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, view View) {
	if r.Context().Err() != nil {
		log.Debug().Str("path", r.URL.Path).Msg("client went away, skipping render")
		return
	}

	tmpl, ok := s.pages[page]
	if !ok {
		log.Error().Str("page", page).Msg("Unknown page template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", s.pageData(w, r, view)); err != nil {
		log.Err(err).Str("page", page).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, pageStatus, View{
		Title: http.StatusText(status),
		Error: message,
		Data:  status,
	})
}

// handleAPIError is the one place that reacts to backend failures. An
// expired session always ends on the login page; everything else renders
// page with the error banner.
func (s *Server) handleAPIError(w http.ResponseWriter, r *http.Request, err error, page string, view View) {
	if errors.Is(err, context.Canceled) || r.Context().Err() != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("request abandoned")
		return
	}
	if apperrors.Is(err, apperrors.ErrSessionExpired) {
		redirectWithError(w, r, RouteLogin, apperrors.UserMessage(err))
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Err(err).Str("path", r.URL.Path).Msg("backend call failed")
	}
	view.Error = apperrors.UserMessage(err)
	s.render(w, r, status, page, view)
}

func statusFor(err error) int {
	var validationErr *apperrors.ValidationError
	var requestErr *apperrors.RequestError
	switch {
	case apperrors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case apperrors.As(err, &requestErr) && requestErr.StatusCode < 500:
		return requestErr.StatusCode
	default:
		return http.StatusBadGateway
	}
}

// NotFoundHandler renders the 404 page for unknown paths
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderStatus(w, r, http.StatusNotFound, "That page does not exist.")
	}
}
