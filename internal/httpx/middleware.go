package httpx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID carries the per-request ID the service echoes back so a
// caller can quote it when reporting a failed upload or download.
const HeaderRequestID = "X-Request-Id"

type requestIDKey struct{}

// withRequestID tags every request with an ID, minting a UUID when the
// caller did not supply one, and echoes it on the response. Log lines keyed
// by this ID are the only way to chase a one-time download after the fact;
// the outcome logs carry no token.
func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, rid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, rid)))
	})
}

// requestID returns the request's ID, or "" outside a request context.
func requestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}
