package server

import (
	"net/http"
	"net/url"
	"time"
)

const (
	// browserCookieName identifies the browser's storage scope
	browserCookieName = "monologue_browser"
	// flashCookieName carries a one-shot success message to the next page
	flashCookieName = "monologue_flash"
)

func (s *Server) SetBrowserCookie(w http.ResponseWriter, r *http.Request, browserID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     browserCookieName,
		Value:    browserID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetBrowserStorageMaxAge() / time.Second),
	})
}

// setFlash stores a success message shown once on the next rendered page
func setFlash(w http.ResponseWriter, r *http.Request, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(message),
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// popFlash reads and clears the flash message
func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:   flashCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return message
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	fullPath := path + "?error=" + url.QueryEscape(errorMsg)

	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", fullPath)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, fullPath, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// safeReturnPath keeps redirects on this site
func safeReturnPath(r *http.Request, fallback string) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) || u.Path == "" {
		return fallback
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
