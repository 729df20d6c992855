package server

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed static
var staticFiles embed.FS

// asset is an embedded stylesheet or script, read once at startup.
type asset struct {
	data        []byte
	contentType string
	etag        string
}

// loadAssets indexes everything under static/ by the URL path it is served at,
// e.g. static/css/app.css becomes /css/app.css.
func loadAssets() (map[string]asset, error) {
	assets := map[string]asset{}
	err := fs.WalkDir(staticFiles, "static", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := staticFiles.ReadFile(name)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		assets[strings.TrimPrefix(name, "static")] = asset{
			data:        data,
			contentType: assetContentType(name, data),
			etag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
		return nil
	})
	return assets, err
}

func assetContentType(name string, data []byte) string {
	ctype := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
		ctype += "; charset=utf-8"
	}
	return ctype
}

// AssetHandler serves /css/{file} and /js/{file}. A matching If-None-Match
// gets a 304 so revalidation after max-age is cheap.
func (s *Server) AssetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.assets[r.URL.Path]
		if !ok {
			logError(r.Method, r.URL.Path, "no such asset")
			s.renderStatus(w, r, http.StatusNotFound, "That page does not exist.")
			return
		}

		w.Header().Set("ETag", a.etag)
		if r.Header.Get("If-None-Match") == a.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", a.contentType)
		_, _ = w.Write(a.data)
	}
}
