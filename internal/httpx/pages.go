package httpx

import (
	"io"
	"net/http"
	"path"
	"strings"
)

// handleIndex serves the upload page at the exact root path.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" { // only exact root handled here
		h.writeError(r.Context(), w, http.StatusNotFound, "not found", ReasonNotFound)
		return
	}
	h.servePage(w, "index.html")
}

// handleDownloadPage serves the download page for /d/{token}. The page itself
// fetches status, then performs the one-time download and client-side
// decryption with the key carried in the URL fragment, which never reaches
// this server.
func (h *Handler) handleDownloadPage(w http.ResponseWriter, r *http.Request) {
	const prefix = "/d/"
	if !strings.HasPrefix(r.URL.Path, prefix) || len(r.URL.Path) == len(prefix) { // no token present
		h.writeError(r.Context(), w, http.StatusNotFound, "not found", ReasonNotFound)
		return
	}
	h.servePage(w, "download.html")
}

// servePage writes a static HTML page from the assets filesystem.
func (h *Handler) servePage(w http.ResponseWriter, name string) {
	if h.Assets == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("page unavailable"))
		return
	}
	f, err := h.Assets.Open(name)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("page error"))
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.Copy(w, f)
}

// staticHandler serves embedded/static assets under /static/.
func (h *Handler) staticHandler() http.Handler {
	fs := h.Assets
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent directory listings; require a file with extension
		if strings.HasSuffix(r.URL.Path, "/") || path.Ext(r.URL.Path) == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		// Long-lived caching; caller can fingerprint filenames later.
		w.Header().Set("Cache-Control", "public, max-age=300")
		http.FileServer(fs).ServeHTTP(w, r)
	})
}
