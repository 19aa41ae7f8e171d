package httpx

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// handleUpload implements POST /api/upload. The ciphertext streams in as the
// raw request body; the IV and declared filename ride in headers so the body
// never needs multipart framing.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if r.URL.Path != "/api/upload" { // disallow trailing slash variants
		h.writeError(ctx, w, http.StatusNotFound, "not found", ReasonNotFound)
		return
	}
	cl := r.ContentLength
	if cl < 0 {
		h.writeError(ctx, w, http.StatusLengthRequired, "content length required", "")
		return
	}
	if cl == 0 {
		h.writeError(ctx, w, http.StatusBadRequest, "empty body", "")
		return
	}
	// Reject oversize before the service ever sees the body.
	if h.MaxBody > 0 && cl > h.MaxBody {
		h.writeError(ctx, w, http.StatusRequestEntityTooLarge, "file too large", ReasonTooLarge)
		return
	}
	iv := r.Header.Get(HeaderIV)
	if iv == "" {
		h.writeError(ctx, w, http.StatusBadRequest, "missing iv", "")
		return
	}
	filename, err := url.QueryUnescape(r.Header.Get(HeaderFilename))
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid filename encoding", "")
		return
	}
	kind := r.Header.Get(HeaderKind)

	body := http.MaxBytesReader(w, r.Body, cl)
	defer body.Close()
	token, expires, svcErr := h.Service.Put(ctx, filename, kind, body, cl, []byte(iv))
	if svcErr != nil {
		h.mapServiceError(ctx, w, svcErr)
		return
	}
	h.count(CounterFilesCreated)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}{Token: token.String(), ExpiresAt: expires})
}
