package server_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-monologue/apiclient"
	"github.com/jrsteele09/go-monologue/internal/config"
	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
	"github.com/jrsteele09/go-monologue/internal/testapi"
	"github.com/jrsteele09/go-monologue/localstore"
	"github.com/jrsteele09/go-monologue/monologues"
	"github.com/jrsteele09/go-monologue/monologues/fakeservice"
	"github.com/jrsteele09/go-monologue/server"
	"github.com/jrsteele09/go-monologue/sessions"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	t       *testing.T
	backend *testapi.Server
	store   *localstore.InMemoryRepo
	handler http.Handler
	app     *httptest.Server
	jar     *cookiejar.Jar
	client  *http.Client
}

func setupTestFixture(t *testing.T, opts ...server.Option) *testFixture {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("FLASH_TIMEOUT", "3s")

	backend, backendHTTP := testapi.Start(t)
	store := localstore.NewInMemoryRepo()

	srv, err := server.New(config.New(), apiclient.New(backendHTTP.URL, nil), store, opts...)
	require.NoError(t, err)

	app := httptest.NewServer(srv)
	t.Cleanup(app.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testFixture{
		t:       t,
		backend: backend,
		store:   store,
		handler: srv,
		app:     app,
		jar:     jar,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type page struct {
	status int
	header http.Header
	body   string
}

func (f *testFixture) do(req *http.Request) page {
	f.t.Helper()
	resp, err := f.client.Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)
	return page{status: resp.StatusCode, header: resp.Header, body: string(body)}
}

func (f *testFixture) get(path string) page {
	f.t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.app.URL+path, nil)
	require.NoError(f.t, err)
	return f.do(req)
}

func (f *testFixture) postForm(path string, form url.Values) page {
	f.t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.app.URL+path, strings.NewReader(form.Encode()))
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req)
}

type upload struct {
	name string
	data []byte
}

func (f *testFixture) postMultipart(path string, fields map[string]string, files ...upload) page {
	f.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(f.t, mw.WriteField(k, v))
	}
	for _, file := range files {
		part, err := mw.CreateFormFile("file", file.name)
		require.NoError(f.t, err)
		_, err = part.Write(file.data)
		require.NoError(f.t, err)
	}
	require.NoError(f.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, f.app.URL+path, &body)
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return f.do(req)
}

func (f *testFixture) login() {
	f.t.Helper()
	resp := f.postForm(server.RouteLogin, url.Values{
		"email":    {testapi.DefaultEmail},
		"password": {testapi.DefaultPassword},
	})
	require.Equal(f.t, http.StatusSeeOther, resp.status, resp.body)
	require.Equal(f.t, server.RouteHome, resp.header.Get("Location"))
	f.backend.ResetRequests()
}

func (f *testFixture) browserID() string {
	f.t.Helper()
	u, err := url.Parse(f.app.URL)
	require.NoError(f.t, err)
	for _, c := range f.jar.Cookies(u) {
		if c.Name == "monologue_browser" {
			return c.Value
		}
	}
	f.t.Fatal("no browser cookie")
	return ""
}

func (f *testFixture) stored(key string) (string, bool) {
	f.t.Helper()
	value, ok, err := f.store.Get(context.Background(), f.browserID(), key)
	require.NoError(f.t, err)
	return value, ok
}

func TestProtectedPagesRedirectBeforeAnyFetch(t *testing.T) {
	f := setupTestFixture(t)

	for _, path := range []string{"/monologues", "/monologues/write", "/monologues/random", "/monologues/1", "/monologues/edit/1", "/monologues/attachment/1"} {
		t.Run(path, func(t *testing.T) {
			resp := f.get(path)
			require.Equal(t, http.StatusSeeOther, resp.status)
			require.Equal(t, server.RouteLogin, resp.header.Get("Location"))
		})
	}
	require.Empty(t, f.backend.Requests())
}

func TestLoginStoresSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login()

	token, ok := f.stored(sessions.KeyAccessToken)
	require.True(t, ok)
	require.NotEmpty(t, token)
	email, _ := f.stored(sessions.KeyUserEmail)
	require.Equal(t, testapi.DefaultEmail, email)
	name, _ := f.stored(sessions.KeyUserName)
	require.Equal(t, testapi.DefaultName, name)

	home := f.get("/")
	require.Equal(t, http.StatusOK, home.status)
	require.Contains(t, home.body, "Hello, Ada.")
	require.Contains(t, home.body, "Welcome back, Ada!")
	require.Contains(t, home.body, `data-dismiss-after="3000"`)

	// flash is shown once
	require.NotContains(t, f.get("/").body, "Welcome back, Ada!")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.postForm(server.RouteLogin, url.Values{"email": {testapi.DefaultEmail}, "password": {"wrong1"}})
	require.Equal(t, http.StatusUnauthorized, resp.status)
	require.Contains(t, resp.body, "Invalid email or password.")
	require.Contains(t, resp.body, `value="ada@example.com"`)

	_, ok := f.stored(sessions.KeyAccessToken)
	require.False(t, ok)
}

func TestLoginValidationSkipsBackend(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.postForm(server.RouteLogin, url.Values{"email": {""}, "password": {""}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.status)
	require.Contains(t, resp.body, "Please enter both your email and password.")
	require.Empty(t, f.backend.Requests())
}

func TestLoggedInMembersSkipLoginPage(t *testing.T) {
	f := setupTestFixture(t)
	f.login()

	resp := f.get(server.RouteLogin)
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, server.RouteHome, resp.header.Get("Location"))
}

func TestSignupLogsIn(t *testing.T) {
	f := setupTestFixture(t)

	resp := f.postForm(server.RouteSignup, url.Values{
		"name":            {"Grace"},
		"email":           {"grace@example.com"},
		"password":        {"hopper1"},
		"confirmPassword": {"hopper1"},
	})
	require.Equal(t, http.StatusSeeOther, resp.status, resp.body)
	require.Equal(t, server.RouteHome, resp.header.Get("Location"))

	home := f.get("/")
	require.Contains(t, home.body, "Hello, Grace.")
	require.Contains(t, home.body, "Welcome, Grace!")
}

func TestSignupErrors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		f := setupTestFixture(t)
		resp := f.postForm(server.RouteSignup, url.Values{
			"name":            {"Grace"},
			"email":           {"grace@example.com"},
			"password":        {"hopper1"},
			"confirmPassword": {"hopper2"},
		})
		require.Equal(t, http.StatusUnprocessableEntity, resp.status)
		require.Contains(t, resp.body, "The passwords do not match.")
		require.Empty(t, f.backend.Requests())
	})

	t.Run("already registered", func(t *testing.T) {
		f := setupTestFixture(t)
		resp := f.postForm(server.RouteSignup, url.Values{
			"name":            {"Ada"},
			"email":           {testapi.DefaultEmail},
			"password":        {"secret2"},
			"confirmPassword": {"secret2"},
		})
		require.Equal(t, http.StatusConflict, resp.status)
		require.Contains(t, resp.body, "This email is already registered")
	})
}

func TestSignupWithoutTokenSendsMemberToLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.OmitAccessToken = true

	resp := f.postForm(server.RouteSignup, url.Values{
		"name":            {"Ann"},
		"email":           {"ann@example.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	})
	require.Equal(t, http.StatusSeeOther, resp.status, resp.body)
	require.Equal(t, server.RouteLogin+"?email=ann%40example.com", resp.header.Get("Location"))

	_, ok := f.stored(sessions.KeyAccessToken)
	require.False(t, ok)

	login := f.get(resp.header.Get("Location"))
	require.Equal(t, http.StatusOK, login.status)
	require.Contains(t, login.body, "Your account is ready. Please log in.")
	require.NotContains(t, login.body, "Welcome, Ann!")
}

func TestExpiredSessionRedirectsToLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.login()
	f.backend.RevokeTokens()

	resp := f.get(server.RouteMonologues)
	require.Equal(t, http.StatusSeeOther, resp.status)
	location, err := url.Parse(resp.header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, server.RouteLogin, location.Path)
	require.Equal(t, "Your session has expired. Please log in again.", location.Query().Get("error"))

	for _, key := range []string{sessions.KeyAccessToken, sessions.KeyRefreshToken, sessions.KeyUserEmail, sessions.KeyUserName} {
		_, ok := f.stored(key)
		require.False(t, ok, key)
	}

	loginPage := f.get(location.String())
	require.Equal(t, http.StatusOK, loginPage.status)
	require.Contains(t, loginPage.body, "Your session has expired. Please log in again.")
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	f.login()

	for i := 0; i < 2; i++ {
		resp := f.postForm(server.RouteLogout, nil)
		require.Equal(t, http.StatusSeeOther, resp.status)
		require.Equal(t, server.RouteHome, resp.header.Get("Location"))
	}

	_, ok := f.stored(sessions.KeyAccessToken)
	require.False(t, ok)
	require.Contains(t, f.get("/").body, "Create an account")
	require.Empty(t, f.backend.Requests())
}

func TestWriteThenList(t *testing.T) {
	f := setupTestFixture(t)
	f.login()

	resp := f.postMultipart(server.RouteMonologueWrite,
		map[string]string{"content": "First entry", "weather": "Sunny"},
		upload{name: "notes.txt", data: []byte("hello")},
	)
	require.Equal(t, http.StatusSeeOther, resp.status, resp.body)
	require.Equal(t, server.RouteMonologues, resp.header.Get("Location"))

	stored := f.backend.Monologues()
	require.Len(t, stored, 1)
	require.Equal(t, "First entry", stored[0].Content)
	require.Equal(t, "Sunny", stored[0].Weather)
	require.True(t, strings.HasSuffix(stored[0].AttachmentPath, "/notes.txt"))

	list := f.get(server.RouteMonologues)
	require.Equal(t, http.StatusOK, list.status)
	require.Contains(t, list.body, "First entry")
	require.Contains(t, list.body, "Your monologue has been saved.")
}

func TestWriteBlankContentNeverReachesBackend(t *testing.T) {
	f := setupTestFixture(t)
	f.login()

	resp := f.postMultipart(server.RouteMonologueWrite, map[string]string{"content": "   \n ", "weather": "Rain"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.status)
	require.Contains(t, resp.body, `value="Rain"`)
	require.Empty(t, f.backend.Requests())
}

func TestWriteRejectsSeveralFiles(t *testing.T) {
	f := setupTestFixture(t)
	f.login()

	resp := f.postMultipart(server.RouteMonologueWrite,
		map[string]string{"content": "Two files"},
		upload{name: "a.txt", data: []byte("a")},
		upload{name: "b.txt", data: []byte("b")},
	)
	require.Equal(t, http.StatusUnprocessableEntity, resp.status)
	require.Contains(t, resp.body, "Only one file can be attached.")
	require.Empty(t, f.backend.Monologues())
}

func TestListFilter(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.Seed("Walked by the river", "", "", nil)
	f.backend.Seed("Rainy afternoon reading", "", "", nil)
	f.login()

	resp := f.get(server.RouteMonologues + "?q=river")
	require.Equal(t, http.StatusOK, resp.status)
	require.Contains(t, resp.body, "Walked by the river")
	require.NotContains(t, resp.body, "Rainy afternoon reading")
}

func TestRandomRecall(t *testing.T) {
	t.Run("no entries", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login()

		resp := f.get(server.RouteMonologueRandom)
		require.Equal(t, http.StatusOK, resp.status)
		require.Contains(t, resp.body, "No entries yet.")
	})

	t.Run("picks by index", func(t *testing.T) {
		f := setupTestFixture(t, server.WithRandom(func(n int) int { return n - 1 }))
		f.backend.Seed("the oldest entry", "", "", nil)
		f.backend.Seed("the newest entry", "", "", nil)
		f.login()

		resp := f.get(server.RouteMonologueRandom)
		require.Equal(t, http.StatusOK, resp.status)
		require.Contains(t, resp.body, "the oldest entry")
		require.NotContains(t, resp.body, "the newest entry")
	})
}

func TestDetailAndNotFound(t *testing.T) {
	f := setupTestFixture(t)
	m := f.backend.Seed("A detailed entry", "Fog", "photo.jpg", []byte("jpg"))
	f.login()

	resp := f.get("/monologues/" + strconv.Itoa(m.ID))
	require.Equal(t, http.StatusOK, resp.status)
	require.Contains(t, resp.body, "A detailed entry")
	require.Contains(t, resp.body, "Download photo.jpg")

	missing := f.get("/monologues/999")
	require.Equal(t, http.StatusNotFound, missing.status)
	require.Contains(t, missing.body, "That entry could not be found.")

	f.backend.FailNext(http.StatusNotFound, "Entry 999 was archived")
	archived := f.get("/monologues/999")
	require.Equal(t, http.StatusNotFound, archived.status)
	require.Contains(t, archived.body, "Entry 999 was archived")
	require.NotContains(t, archived.body, "That entry could not be found.")
}

func TestEditKeepsAttachment(t *testing.T) {
	f := setupTestFixture(t)
	m := f.backend.Seed("Before", "", "photo.jpg", []byte("jpg"))
	f.login()

	resp := f.postMultipart("/monologues/edit/"+strconv.Itoa(m.ID), map[string]string{"content": "After"})
	require.Equal(t, http.StatusSeeOther, resp.status, resp.body)
	require.Equal(t, "/monologues/"+strconv.Itoa(m.ID), resp.header.Get("Location"))

	stored := f.backend.Monologues()
	require.Len(t, stored, 1)
	require.Equal(t, "After", stored[0].Content)
	require.Equal(t, m.AttachmentPath, stored[0].AttachmentPath)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	f := setupTestFixture(t)
	m := f.backend.Seed("Delete me", "", "", nil)
	f.login()
	path := "/monologues/delete/" + strconv.Itoa(m.ID)

	confirm := f.get(path)
	require.Equal(t, http.StatusOK, confirm.status)
	require.Contains(t, confirm.body, "Delete this monologue?")

	f.backend.ResetRequests()
	unconfirmed := f.postForm(path, nil)
	require.Equal(t, http.StatusOK, unconfirmed.status)
	require.Contains(t, unconfirmed.body, "Delete this monologue?")
	require.Empty(t, f.backend.Requests())
	require.Len(t, f.backend.Monologues(), 1)

	resp := f.postForm(path, url.Values{"confirm": {"yes"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, server.RouteMonologues, resp.header.Get("Location"))
	require.Empty(t, f.backend.Monologues())
}

func TestAttachmentDownload(t *testing.T) {
	f := setupTestFixture(t)
	withFile := f.backend.Seed("Has a file", "", "notes.txt", []byte("hello"))
	withoutFile := f.backend.Seed("No file", "", "", nil)
	f.login()

	resp := f.get("/monologues/attachment/" + strconv.Itoa(withFile.ID))
	require.Equal(t, http.StatusOK, resp.status)
	require.Equal(t, "attachment; filename=notes.txt", resp.header.Get("Content-Disposition"))
	require.Equal(t, "hello", resp.body)

	missing := f.get("/monologues/attachment/" + strconv.Itoa(withoutFile.ID))
	require.Equal(t, http.StatusNotFound, missing.status)
}

func TestAttachmentFilenameFallsBackToReference(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SendDisposition = false
	m := f.backend.Seed("Has a file", "", "holiday.png", []byte("png"))
	f.login()

	resp := f.get("/monologues/attachment/" + strconv.Itoa(m.ID))
	require.Equal(t, http.StatusOK, resp.status)
	require.Equal(t, "attachment; filename=holiday.png", resp.header.Get("Content-Disposition"))
}

func TestBackendFailureShowsBanner(t *testing.T) {
	f := setupTestFixture(t)
	f.login()
	f.backend.FailNext(http.StatusInternalServerError, "")

	resp := f.get(server.RouteMonologues)
	require.Equal(t, http.StatusBadGateway, resp.status)
	require.Contains(t, resp.body, "The server could not complete the request (status 500).")
	require.Contains(t, resp.body, `data-dismiss aria-label="Dismiss"`)

	// still logged in
	_, ok := f.stored(sessions.KeyAccessToken)
	require.True(t, ok)
}

func TestThemeToggle(t *testing.T) {
	f := setupTestFixture(t)
	require.Contains(t, f.get("/").body, `class="light-mode"`)

	resp := f.postForm(server.RouteThemeToggle, nil)
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, server.RouteHome, resp.header.Get("Location"))
	require.Contains(t, f.get("/").body, `class="dark-mode"`)

	value, ok := f.stored("darkMode")
	require.True(t, ok)
	require.Equal(t, "true", value)

	// theme survives logout
	f.login()
	f.postForm(server.RouteLogout, nil)
	require.Contains(t, f.get("/").body, `class="dark-mode"`)
}

func TestStaticAssetsAndNotFound(t *testing.T) {
	f := setupTestFixture(t)

	css := f.get("/css/app.css")
	require.Equal(t, http.StatusOK, css.status)
	require.Contains(t, css.header.Get("Content-Type"), "text/css")

	js := f.get("/js/app.js")
	require.Equal(t, http.StatusOK, js.status)
	require.Contains(t, js.body, "data-disable-on-submit")
	require.Contains(t, js.body, "[data-dismiss]")

	etag := css.header.Get("ETag")
	require.NotEmpty(t, etag)
	req, err := http.NewRequest(http.MethodGet, f.app.URL+"/css/app.css", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	cached := f.do(req)
	require.Equal(t, http.StatusNotModified, cached.status)
	require.Empty(t, cached.body)

	require.Equal(t, http.StatusNotFound, f.get("/css/missing.css").status)

	missing := f.get("/no/such/page")
	require.Equal(t, http.StatusNotFound, missing.status)
	require.Contains(t, missing.body, "That page does not exist.")
}

func TestNetworkFailureKeepsSession(t *testing.T) {
	fake := fakeservice.New(monologues.Monologue{Content: "cached"})
	f := setupTestFixture(t, server.WithServiceFactory(func(*apiclient.Client) monologues.Service { return fake }))
	f.login()

	fake.FailWith(&apperrors.NetworkError{Op: "GET /api/monologues/list", Err: errors.New("connection refused")})
	resp := f.get(server.RouteMonologues)
	require.Equal(t, http.StatusBadGateway, resp.status)
	require.Contains(t, resp.body, "Could not reach the server. Check your connection and try again.")

	fake.FailWith(nil)
	require.Contains(t, f.get(server.RouteMonologues).body, "cached")
	require.Equal(t, []string{"List", "List"}, fake.Calls())
}

func TestUnconfirmedDeleteNeverCallsService(t *testing.T) {
	fake := fakeservice.New(monologues.Monologue{Content: "stay"})
	f := setupTestFixture(t, server.WithServiceFactory(func(*apiclient.Client) monologues.Service { return fake }))
	f.login()

	resp := f.postForm("/monologues/delete/1", url.Values{"confirm": {"no"}})
	require.Equal(t, http.StatusOK, resp.status)
	require.Empty(t, fake.Calls())

	resp = f.postMultipart("/monologues/edit/1", map[string]string{"content": " "})
	require.Equal(t, http.StatusUnprocessableEntity, resp.status)
	require.Empty(t, fake.Calls())
}

func TestAbandonedRequestWritesNothing(t *testing.T) {
	fake := fakeservice.New(monologues.Monologue{Content: "never shown"})
	f := setupTestFixture(t, server.WithServiceFactory(func(*apiclient.Client) monologues.Service { return fake }))
	f.login()
	fake.Hold()

	for _, path := range []string{server.RouteMonologues, "/monologues/1"} {
		t.Run(path, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
			appURL, err := url.Parse(f.app.URL)
			require.NoError(t, err)
			for _, c := range f.jar.Cookies(appURL) {
				req.AddCookie(c)
			}

			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			require.False(t, rec.Flushed)
			require.Empty(t, rec.Body.String())
		})
	}
	require.Equal(t, []string{"List", "Get 1"}, fake.Calls())
}
