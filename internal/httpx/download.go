package httpx

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// handleDownload implements GET /api/download/{token}, the one-time
// destructive retrieval. The response is sent before the service reclaims
// storage (Close on the payload reader triggers deletion), so the recipient
// gets the bytes even if the cleanup fails transiently.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	const prefix = "/api/download/"
	if len(r.URL.Path) <= len(prefix) {
		h.writeError(ctx, w, http.StatusNotFound, "file not found", ReasonNotFound)
		return
	}
	token := r.URL.Path[len(prefix):]
	meta, payload, iv, err := h.Service.Consume(ctx, token)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	defer payload.Close()

	// The ciphertext is bounded by MaxBody, so buffering for the base64 JSON
	// body is acceptable; the client decodes and decrypts it in one piece.
	data, err := io.ReadAll(payload)
	if err != nil {
		// The CAS already fired: the file is consumed and will be reclaimed
		// on Close. Nothing to offer the caller but an internal error.
		slog.Error("read consumed payload", "request_id", requestID(ctx), "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "internal", ReasonInternal)
		return
	}
	h.count(CounterFilesConsumed)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Filename string `json:"filename"`
		IV       string `json:"iv"`
		Data     string `json:"data"`
	}{Filename: meta.Filename, IV: string(iv), Data: base64.StdEncoding.EncodeToString(data)})
}
