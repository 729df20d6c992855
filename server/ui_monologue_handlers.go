package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
	"github.com/jrsteele09/go-monologue/monologues"
	"github.com/rs/zerolog/log"
)

type ListPageData struct {
	Query      string
	Monologues []monologues.Monologue
	Total      int
}

type WritePageData struct {
	Content     string
	Weather     string
	MaxUploadMB int64
}

type RandomPageData struct {
	Monologue *monologues.Monologue
	Total     int
}

type DetailPageData struct {
	Monologue monologues.Monologue
}

type EditPageData struct {
	Monologue   monologues.Monologue
	Content     string
	Weather     string
	MaxUploadMB int64
}

type DeletePageData struct {
	Monologue monologues.Monologue
}

// MonologueListHandler lists every entry, filtered by ?q= on content
func (s *Server) MonologueListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		view := View{Title: "My monologues", Data: ListPageData{Query: query}}

		list, err := stateFrom(r.Context()).monologues.List(r.Context())
		if err != nil {
			s.handleAPIError(w, r, err, pageList, view)
			return
		}

		view.Data = ListPageData{Query: query, Monologues: monologues.Filter(list, query), Total: len(list)}
		s.render(w, r, http.StatusOK, pageList, view)
	}
}

func (s *Server) WriteGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageWrite, View{
			Title: "Write",
			Data:  WritePageData{MaxUploadMB: s.maxUploadMB()},
		})
	}
}

// WritePostHandler creates an entry and goes back to the list, which re-fetches.
func (s *Server) WritePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, cleanup, err := s.parseDraft(w, r)
		defer cleanup()
		view := View{
			Title: "Write",
			Data:  WritePageData{Content: draft.Content, Weather: draft.Weather, MaxUploadMB: s.maxUploadMB()},
		}
		if err != nil {
			s.handleAPIError(w, r, err, pageWrite, view)
			return
		}

		if _, err := stateFrom(r.Context()).monologues.Create(r.Context(), draft); err != nil {
			s.handleAPIError(w, r, err, pageWrite, view)
			return
		}

		setFlash(w, r, "Your monologue has been saved.")
		redirectSuccess(w, r, RouteMonologues)
	}
}

// RandomMonologueHandler re-fetches the list on every visit and picks one
// entry uniformly. No entries is a normal state, not an error.
func (s *Server) RandomMonologueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := View{Title: "Random recall", Data: RandomPageData{}}

		list, err := stateFrom(r.Context()).monologues.List(r.Context())
		if err != nil {
			s.handleAPIError(w, r, err, pageRandom, view)
			return
		}

		data := RandomPageData{Total: len(list)}
		if picked, ok := monologues.PickRandom(list, s.intn); ok {
			data.Monologue = &picked
		}
		view.Data = data
		s.render(w, r, http.StatusOK, pageRandom, view)
	}
}

func (s *Server) MonologueDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := monologues.ID(r.PathValue("id"))
		view := View{Title: "Monologue", Data: DetailPageData{Monologue: monologues.Monologue{ID: id}}}

		m, err := stateFrom(r.Context()).monologues.Get(r.Context(), id)
		if err != nil {
			s.handleAPIError(w, r, err, pageDetail, view)
			return
		}

		view.Data = DetailPageData{Monologue: m}
		s.render(w, r, http.StatusOK, pageDetail, view)
	}
}

func (s *Server) EditGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := monologues.ID(r.PathValue("id"))
		view := View{Title: "Edit", Data: EditPageData{Monologue: monologues.Monologue{ID: id}, MaxUploadMB: s.maxUploadMB()}}

		m, err := stateFrom(r.Context()).monologues.Get(r.Context(), id)
		if err != nil {
			s.handleAPIError(w, r, err, pageEdit, view)
			return
		}

		view.Data = EditPageData{Monologue: m, Content: m.Content, Weather: m.Weather, MaxUploadMB: s.maxUploadMB()}
		s.render(w, r, http.StatusOK, pageEdit, view)
	}
}

// EditPostHandler resends the full entry, replacing the attachment only
// when a new file was chosen.
func (s *Server) EditPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := monologues.ID(r.PathValue("id"))
		draft, cleanup, err := s.parseDraft(w, r)
		defer cleanup()

		current := monologues.Monologue{ID: id, AttachmentPath: r.FormValue("attachmentPath")}
		view := View{
			Title: "Edit",
			Data:  EditPageData{Monologue: current, Content: draft.Content, Weather: draft.Weather, MaxUploadMB: s.maxUploadMB()},
		}
		if err != nil {
			s.handleAPIError(w, r, err, pageEdit, view)
			return
		}

		if _, err := stateFrom(r.Context()).monologues.Update(r.Context(), id, draft); err != nil {
			s.handleAPIError(w, r, err, pageEdit, view)
			return
		}

		setFlash(w, r, "Your monologue has been updated.")
		redirectSuccess(w, r, monologuePath(id.String()))
	}
}

// DeleteGetHandler asks for confirmation before anything is removed
func (s *Server) DeleteGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := monologues.ID(r.PathValue("id"))
		view := View{Title: "Delete", Data: DeletePageData{Monologue: monologues.Monologue{ID: id}}}

		m, err := stateFrom(r.Context()).monologues.Get(r.Context(), id)
		if err != nil {
			s.handleAPIError(w, r, err, pageDelete, view)
			return
		}

		view.Data = DeletePageData{Monologue: m}
		s.render(w, r, http.StatusOK, pageDelete, view)
	}
}

// DeletePostHandler only deletes with confirm=yes, otherwise it shows the
// confirmation page again without touching the backend.
func (s *Server) DeletePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := monologues.ID(r.PathValue("id"))
		view := View{Title: "Delete", Data: DeletePageData{Monologue: monologues.Monologue{ID: id}}}

		if err := r.ParseForm(); err != nil || r.PostFormValue("confirm") != "yes" {
			s.render(w, r, http.StatusOK, pageDelete, view)
			return
		}

		if err := stateFrom(r.Context()).monologues.Delete(r.Context(), id); err != nil {
			s.handleAPIError(w, r, err, pageDelete, view)
			return
		}

		setFlash(w, r, "Your monologue has been deleted.")
		redirectSuccess(w, r, RouteMonologues)
	}
}

// AttachmentHandler streams the attachment to the browser and releases the
// upstream body as soon as it has been copied.
func (s *Server) AttachmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := monologues.ID(r.PathValue("id"))
		svc := stateFrom(r.Context()).monologues
		view := View{Title: "Monologue", Data: DetailPageData{Monologue: monologues.Monologue{ID: id}}}

		m, err := svc.Get(r.Context(), id)
		if err != nil {
			s.handleAPIError(w, r, err, pageDetail, view)
			return
		}
		if !m.HasAttachment() {
			s.renderStatus(w, r, http.StatusNotFound, "This monologue has no attachment.")
			return
		}

		attachment, err := svc.DownloadAttachment(r.Context(), id, m.AttachmentPath)
		if err != nil {
			view.Data = DetailPageData{Monologue: m}
			s.handleAPIError(w, r, err, pageDetail, view)
			return
		}
		defer attachment.Close()

		w.Header().Set("Content-Type", attachment.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": attachment.Filename}))
		if attachment.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(attachment.Size, 10))
		}
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, attachment.Body); err != nil {
			log.Warn().Err(err).Str("id", id.String()).Msg("attachment download interrupted")
		}
	}
}

// parseDraft reads the write/edit form. cleanup must always be called.
func (s *Server) parseDraft(w http.ResponseWriter, r *http.Request) (monologues.Draft, func(), error) {
	cleanup := func() {}
	maxBytes := s.config.GetMaxUploadBytes()
	// headroom for the text fields and multipart framing
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	if err := r.ParseMultipartForm(maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return monologues.Draft{}, cleanup, apperrors.NewValidationError("file",
				fmt.Sprintf("The attachment is too large. The limit is %d MB.", s.maxUploadMB()))
		}
		return monologues.Draft{}, cleanup, apperrors.NewValidationError("", "The form could not be read. Please try again.")
	}

	draft := monologues.Draft{
		Content: r.FormValue("content"),
		Weather: strings.TrimSpace(r.FormValue("weather")),
	}
	if r.MultipartForm == nil {
		return draft, cleanup, nil
	}
	cleanup = func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn().Err(err).Msg("failed to remove multipart temp files")
		}
	}

	files := r.MultipartForm.File["file"]
	switch {
	case len(files) == 0:
		return draft, cleanup, nil
	case len(files) > 1:
		return draft, cleanup, apperrors.NewValidationError("file", "Only one file can be attached.")
	}

	f, err := files[0].Open()
	if err != nil {
		return draft, cleanup, err
	}
	removeAll := cleanup
	cleanup = func() {
		f.Close()
		removeAll()
	}
	draft.File = &monologues.Upload{
		Name:        files[0].Filename,
		ContentType: files[0].Header.Get("Content-Type"),
		Body:        f,
	}
	return draft, cleanup, nil
}

func (s *Server) maxUploadMB() int64 {
	return s.config.GetMaxUploadBytes() >> 20
}
