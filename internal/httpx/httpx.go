// Package httpx contains the HTTP delivery layer (net/http handlers) for the
// SafeSend service. It maps HTTP requests to the application service while
// enforcing validation, size limits, security headers, streaming semantics,
// and error translation. Handlers are split across files (upload.go,
// status.go, download.go, pages.go, health.go, errors.go).
package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/safesend/safesend/internal/app"
	"github.com/safesend/safesend/internal/domain"
)

// Request/response headers carrying upload metadata alongside the raw
// ciphertext body. The IV is opaque base64 text; the filename is
// percent-encoded by the client so arbitrary names survive header transport.
const (
	HeaderIV       = "X-Safesend-Iv"
	HeaderFilename = "X-Safesend-Filename"
	HeaderKind     = "X-Safesend-Kind"
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	Put(ctx context.Context, filename, kind string, payload io.Reader, size int64, iv []byte) (domain.Token, time.Time, error)
	Status(ctx context.Context, token string) (app.FileMeta, error)
	Consume(ctx context.Context, token string) (app.FileMeta, io.ReadCloser, []byte, error)
}

// CounterSink receives operational counter increments. Satisfied by
// *metrics.Manager; nil disables counting.
type CounterSink interface {
	Inc(name string, delta int64)
}

// Counter names emitted by this package.
const (
	CounterFilesCreated  = "files_created_total"
	CounterFilesConsumed = "files_consumed_total"
)

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service   ServicePort
	MaxBody   int64                       // mirror service MaxBytes (defense-in-depth)
	Readiness func(context.Context) error // optional readiness probe
	Assets    http.FileSystem             // static pages and assets (optional)
	Metrics   CounterSink                 // optional counter sink
}

// New returns a configured Handler.
// svc: application service port implementation.
// maxBody: maximum allowed request body size (0 disables extra check).
// readiness: optional probe function for /readyz (nil => always ready).
func New(svc ServicePort, maxBody int64, readiness func(context.Context) error) *Handler {
	return &Handler{Service: svc, MaxBody: maxBody, Readiness: readiness}
}

// Router constructs and returns an http.Handler with all routes mounted,
// correlation-ID and security headers middleware applied.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleIndex)
	mux.HandleFunc("/d/", h.handleDownloadPage)
	mux.HandleFunc("/api/upload", h.handleUpload)
	mux.HandleFunc("/api/status/", h.handleStatus)     // expect /api/status/{token}
	mux.HandleFunc("/api/download/", h.handleDownload) // expect /api/download/{token}
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReady)
	if h.Assets != nil {
		mux.Handle("/static/", http.StripPrefix("/static/", h.staticHandler()))
	}
	return h.withRequestID(h.secureHeaders(mux))
}

// secureHeaders middleware adds standard security & cache control headers.
func (h *Handler) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		// Cache defaults per route: static handler overrides to long-lived.
		if ct := w.Header().Get("Content-Type"); ct == "" {
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Pragma", "no-cache")
		}
		w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'self'; style-src 'self'; img-src 'self' data:; connect-src 'self'; font-src 'self'; frame-ancestors 'none'; base-uri 'none'; form-action 'self'")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) count(name string) {
	if h.Metrics != nil {
		h.Metrics.Inc(name, 1)
	}
}
