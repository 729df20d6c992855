// Package testapi is an in-process fake of the monologue REST backend used by
// tests. It implements just enough of the contract to exercise the client.
package testapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	DefaultEmail    = "ada@example.com"
	DefaultPassword = "secret1"
	DefaultName     = "Ada"
)

// Monologue mirrors the JSON record served by the backend.
type Monologue struct {
	ID             int    `json:"id"`
	Content        string `json:"content"`
	CreatedAt      string `json:"createdAt"`
	Weather        string `json:"weather,omitempty"`
	AttachmentPath string `json:"attachmentPath,omitempty"`
}

type attachment struct {
	name        string
	contentType string
	data        []byte
}

type member struct {
	password string
	name     string
}

// Server is a fake backend. Zero values are not usable, use New or Start.
type Server struct {
	mu          sync.Mutex
	members     map[string]member
	tokens      map[string]string // token -> email
	monologues  map[int]Monologue
	attachments map[int]attachment
	nextID      int
	nextToken   int
	requests    []string
	failNext    *failure

	// SendDisposition controls whether file downloads carry Content-Disposition.
	SendDisposition bool
	// OmitAccessToken makes /auth/login succeed without issuing a token.
	OmitAccessToken bool
	// Now stamps created records.
	Now func() time.Time
}

type failure struct {
	status  int
	message string
}

func New() *Server {
	s := &Server{
		members:         map[string]member{DefaultEmail: {password: DefaultPassword, name: DefaultName}},
		tokens:          map[string]string{},
		monologues:      map[int]Monologue{},
		attachments:     map[int]attachment{},
		nextID:          1,
		SendDisposition: true,
		Now:             time.Now,
	}
	return s
}

// Start runs the fake on an httptest server closed at the end of the test.
func Start(t testing.TB) (*Server, *httptest.Server) {
	t.Helper()
	s := New()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /members", s.signup)
	mux.HandleFunc("GET /api/monologues/list", s.authed(s.list))
	mux.HandleFunc("POST /api/monologues/create", s.authed(s.create))
	mux.HandleFunc("GET /api/monologues/file/{id}", s.authed(s.file))
	mux.HandleFunc("GET /api/monologues/{id}", s.authed(s.get))
	mux.HandleFunc("PUT /api/monologues/{id}", s.authed(s.update))
	mux.HandleFunc("PATCH /api/monologues/{id}", s.authed(s.update))
	mux.HandleFunc("DELETE /api/monologues/{id}", s.authed(s.delete))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		fail := s.failNext
		s.failNext = nil
		s.mu.Unlock()

		if fail != nil {
			writeError(w, fail.status, fail.message)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// Requests returns "METHOD /path" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// FailNext makes the next request fail with status and message.
func (s *Server) FailNext(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = &failure{status: status, message: message}
}

// RevokeTokens invalidates every issued token so the next call gets a 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

// IssueToken returns a valid bearer token for the default member.
func (s *Server) IssueToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(DefaultEmail)
}

// Seed stores a record as if it had been created through the API.
func (s *Server) Seed(content, weather, attachmentName string, data []byte) Monologue {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.insertLocked(content, weather)
	if attachmentName != "" {
		s.attachLocked(&m, attachmentName, "", data)
	}
	return m
}

func (s *Server) Monologues() []Monologue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Server) issueLocked(email string) string {
	s.nextToken++
	token := fmt.Sprintf("token-%d", s.nextToken)
	s.tokens[token] = email
	return token
}

func (s *Server) insertLocked(content, weather string) Monologue {
	m := Monologue{
		ID:        s.nextID,
		Content:   content,
		CreatedAt: s.Now().Format("2006-01-02T15:04:05"),
		Weather:   weather,
	}
	s.nextID++
	s.monologues[m.ID] = m
	return m
}

func (s *Server) attachLocked(m *Monologue, name, contentType string, data []byte) {
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	m.AttachmentPath = "uploads/" + strconv.Itoa(s.Now().Year()) + "/" + name
	s.attachments[m.ID] = attachment{name: name, contentType: contentType, data: data}
	s.monologues[m.ID] = *m
}

// newest first, like the real list endpoint
func (s *Server) sortedLocked() []Monologue {
	out := make([]Monologue, 0, len(s.monologues))
	for _, m := range s.monologues {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, valid := s.tokens[token]
		s.mu.Unlock()
		if !ok || !valid {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}
		next(w, r)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[req.Email]
	if !ok || m.password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if s.OmitAccessToken {
		writeJSON(w, http.StatusOK, map[string]string{"name": m.name})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  s.issueLocked(req.Email),
		"refreshToken": "refresh-" + req.Email,
		"name":         m.name,
	})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.members[req.Email]; exists {
		writeError(w, http.StatusConflict, "This email is already registered")
		return
	}
	s.members[req.Email] = member{password: req.Password, name: req.Name}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Monologues())
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "multipart body required")
		return
	}
	content := r.FormValue("content")
	if strings.TrimSpace(content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.insertLocked(content, r.FormValue("weather"))
	if err := s.attachFromForm(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "multipart body required")
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monologues[id]
	if !ok {
		writeError(w, http.StatusNotFound, "")
		return
	}
	m.Content = r.FormValue("content")
	if weather := r.FormValue("weather"); weather != "" {
		m.Weather = weather
	}
	s.monologues[id] = m
	if err := s.attachFromForm(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.monologues[id]; err != nil || !ok {
		writeError(w, http.StatusNotFound, "")
		return
	}
	delete(s.monologues, id)
	delete(s.attachments, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) file(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	s.mu.Lock()
	a, ok := s.attachments[id]
	s.mu.Unlock()
	if err != nil || !ok {
		writeError(w, http.StatusNotFound, "")
		return
	}

	w.Header().Set("Content-Type", a.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.data)))
	if s.SendDisposition {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.name}))
	}
	_, _ = w.Write(a.data)
}

func (s *Server) lookup(r *http.Request) (Monologue, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return Monologue{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monologues[id]
	return m, ok
}

// attachFromForm must be called with s.mu held.
func (s *Server) attachFromForm(r *http.Request, m *Monologue) error {
	if r.MultipartForm == nil || len(r.MultipartForm.File["file"]) == 0 {
		return nil
	}
	if len(r.MultipartForm.File["file"]) > 1 {
		return fmt.Errorf("only one file may be attached")
	}
	header := r.MultipartForm.File["file"][0]
	f, err := header.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	s.attachLocked(m, header.Filename, header.Header.Get("Content-Type"), data)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, map[string]string{"message": message})
}
