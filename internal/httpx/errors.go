package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/safesend/safesend/internal/domain"
)

// Machine-distinguishable reason codes surfaced alongside error messages so
// clients can tell an expired link from an already-downloaded one.
const (
	ReasonNotFound = "not_found"
	ReasonExpired  = "expired"
	ReasonConsumed = "consumed"
	ReasonTooLarge = "too_large"
	ReasonInternal = "internal"
)

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// writeError writes a JSON error body with the given status code and reason.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code int, msg, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, Reason: reason})
	if rid := requestID(ctx); rid != "" {
		slog.Debug("wrote error response", "request_id", rid, "status", code, "reason", reason)
	}
}

// mapServiceError maps domain/store/service errors to HTTP responses.
func (h *Handler) mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	rid := requestID(ctx)
	switch {
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrNotFound):
		// A malformed token is indistinguishable from one that never
		// existed; both read as 404 to the caller.
		slog.Info("service error", "request_id", rid, "code", ReasonNotFound)
		h.writeError(ctx, w, http.StatusNotFound, "file not found", ReasonNotFound)
	case errors.Is(err, domain.ErrExpired):
		slog.Info("service error", "request_id", rid, "code", ReasonExpired)
		h.writeError(ctx, w, http.StatusGone, "file expired", ReasonExpired)
	case errors.Is(err, domain.ErrConsumed):
		slog.Info("service error", "request_id", rid, "code", ReasonConsumed)
		h.writeError(ctx, w, http.StatusGone, "file already downloaded", ReasonConsumed)
	case errors.Is(err, domain.ErrTooLarge):
		slog.Warn("service error", "request_id", rid, "code", ReasonTooLarge)
		h.writeError(ctx, w, http.StatusRequestEntityTooLarge, "file too large", ReasonTooLarge)
	case errors.Is(err, domain.ErrInconsistent):
		// Already logged loudly at the service layer; no recovery possible.
		slog.Error("service error", "request_id", rid, "code", ReasonInternal, "err_type", "inconsistent")
		h.writeError(ctx, w, http.StatusInternalServerError, "internal", ReasonInternal)
	default:
		// Internal / unexpected: do not log raw error string to avoid leaking tokens or paths.
		slog.Error("unhandled service error", "request_id", rid, "code", "unhandled", "err_type", "unknown")
		h.writeError(ctx, w, http.StatusInternalServerError, "internal", ReasonInternal)
	}
}
