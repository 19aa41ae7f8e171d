package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleStatus implements GET /api/status/{token}. It is read-only and safe
// to poll; the download link page calls it before offering the download.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	const prefix = "/api/status/"
	if len(r.URL.Path) <= len(prefix) {
		h.writeError(ctx, w, http.StatusNotFound, "file not found", ReasonNotFound)
		return
	}
	token := r.URL.Path[len(prefix):]
	meta, err := h.Service.Status(ctx, token)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Filename  string    `json:"filename"`
		Size      int64     `json:"size"`
		Kind      string    `json:"kind"`
		ExpiresAt time.Time `json:"expires_at"`
	}{Filename: meta.Filename, Size: meta.Size, Kind: meta.Kind, ExpiresAt: meta.ExpiresAt})
}
