package main

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/safesend/safesend/internal/config"
	"github.com/safesend/safesend/internal/metrics"
	"github.com/safesend/safesend/internal/store/filesystem"
	"github.com/safesend/safesend/internal/store/sqlite"
	_ "github.com/mattn/go-sqlite3"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultAppConfig
	cfg.DataDir = filepath.Join(t.TempDir(), "data-root")
	return &cfg
}

// TestEnsureDirs verifies data and blob directory creation.
func TestEnsureDirs(t *testing.T) {
	cfg := testConfig(t)
	ensureDirs(cfg)
	if st, err := os.Stat(cfg.DataDir); err != nil || !st.IsDir() {
		t.Fatalf("data dir stat: %v", err)
	}
	if st, err := os.Stat(cfg.BlobDir()); err != nil || !st.IsDir() {
		t.Fatalf("blob dir stat: %v", err)
	}
	// Idempotent on existing directories.
	ensureDirs(cfg)
}

// TestBuildService validates field propagation from config.
func TestBuildService(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxBytes = 1234
	cfg.TTL = 2 * time.Minute
	ensureDirs(cfg)
	db, meta := openDatabase(cfg)
	defer db.Close()
	blobs := newBlobStore(cfg.BlobDir())

	s := buildService(cfg, meta, blobs, realClock{})
	if s.MaxBytes != 1234 {
		t.Fatalf("MaxBytes mismatch got %d", s.MaxBytes)
	}
	if s.TTL != 2*time.Minute {
		t.Fatalf("TTL mismatch got %v", s.TTL)
	}
}

// TestNewServer ensures timeouts and addr applied.
func TestNewServer(t *testing.T) {
	cfg := &config.Config{Addr: ":9999"}
	srv := newServer(cfg, http.NewServeMux())
	if srv.Addr != ":9999" {
		t.Fatalf("addr mismatch got %s", srv.Addr)
	}
	if srv.ReadTimeout == 0 || srv.WriteTimeout == 0 {
		t.Fatalf("expected non-zero timeouts")
	}
}

func wireHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := testConfig(t)
	ensureDirs(cfg)
	db, err := sql.Open("sqlite3", cfg.SQLiteDSN())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	meta, err := sqlite.New(db)
	if err != nil {
		t.Fatalf("init schema: %v", err)
	}
	blobs, err := filesystem.New(cfg.BlobDir())
	if err != nil {
		t.Fatalf("init blobs: %v", err)
	}
	mgr := metrics.New(db, metrics.Config{FlushInterval: time.Hour})
	if err := mgr.InitSchema(t.Context()); err != nil {
		t.Fatalf("metrics schema: %v", err)
	}
	svc := buildService(cfg, meta, blobs, realClock{})
	return buildHandler(cfg, svc, db, mgr)
}

// TestBuildHandler_IndexRoute exercises basic route wiring.
func TestBuildHandler_IndexRoute(t *testing.T) {
	h := wireHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("index content type = %q", ct)
	}
}

// TestBuildHandler_HealthAndMetrics checks the operational routes.
func TestBuildHandler_HealthAndMetrics(t *testing.T) {
	h := wireHandler(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
